//go:build integration

package main

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/ligustah/pdfslurp/internal/testutils"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	docs := []testutils.Document{
		{Path: "/papers/large.pdf", Text: "Large paper", Data: testutils.GenerateTestData(t, 2*1024*1024)},
		{Path: "/papers/small.pdf", Text: "Small paper", Data: testutils.GenerateTestData(t, 4096)},
		{Path: "/get?doc=3", Text: "Get the PDF", ContentType: "application/octet-stream", Data: testutils.GenerateTestData(t, 10000)},
	}

	t.Log("Starting test site...")
	site := testutils.StartTestSite(t, docs)

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "pdfslurp-test")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	u, err := url.Parse(site.URL)
	if err != nil {
		t.Fatal(err)
	}
	prefix := u.Host + "_downloads/"

	t.Run("scan", func(t *testing.T) {
		captureIO(t, "")
		exitCode := run([]string{
			"scan",
			"-bucket", minio.BucketURL,
			"-workers", "2",
			"-strict",
			site.URL + "/",
		})
		if exitCode != ExitSuccess {
			t.Fatalf("scan failed with exit code %d", exitCode)
		}
	})

	t.Run("verify", func(t *testing.T) {
		bkt, err := minio.OpenBucket(ctx)
		if err != nil {
			t.Fatalf("open bucket: %v", err)
		}
		defer bkt.Close()

		expected := map[string][]byte{
			"large.pdf": docs[0].Data,
			"small.pdf": docs[1].Data,
			"get.pdf":   docs[2].Data,
		}
		for name, data := range expected {
			r, err := bkt.NewReader(ctx, prefix+name, nil)
			if err != nil {
				t.Fatalf("open %s: %v", name, err)
			}
			testutils.CompareReaderToData(t, r, data)
			r.Close()
		}
	})

	t.Run("rescan skips everything", func(t *testing.T) {
		before := site.Hits("/papers/large.pdf")

		out, _ := captureIO(t, "")
		exitCode := run([]string{"scan", "-bucket", minio.BucketURL, site.URL + "/"})
		if exitCode != ExitSuccess {
			t.Fatalf("rescan failed with exit code %d", exitCode)
		}
		if got := site.Hits("/papers/large.pdf"); got != before {
			t.Fatalf("expected no new requests for existing file, got %d", got-before)
		}
		t.Log(out.String())
	})
}
