package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Candidate is one (bucket, key) pair to try when locating a stored object.
type Candidate struct {
	Bucket string
	Key    string
}

// ResolveCandidates expands a stored "bucket/key" compound path into an
// ordered list of candidates. The bucket-naming convention changed over the
// product's life, so older rows may carry a key whose leading segment is not
// a bucket at all, or reference a since-renamed bucket. Order is
// deterministic, most specific first:
//
//  1. the path split on its first "/" (leading segment as bucket)
//  2. the current bucket with the whole path as key
//  3. each legacy bucket with the whole path as key
func ResolveCandidates(storedPath, currentBucket string, legacyBuckets []string) []Candidate {
	storedPath = strings.TrimPrefix(storedPath, "/")
	var candidates []Candidate

	if bucket, key, ok := strings.Cut(storedPath, "/"); ok && bucket != "" && key != "" {
		candidates = append(candidates, Candidate{Bucket: bucket, Key: key})
	}
	if currentBucket != "" {
		candidates = append(candidates, Candidate{Bucket: currentBucket, Key: storedPath})
	}
	for _, b := range legacyBuckets {
		if b != "" {
			candidates = append(candidates, Candidate{Bucket: b, Key: storedPath})
		}
	}

	return dedupe(candidates)
}

func dedupe(in []Candidate) []Candidate {
	seen := make(map[Candidate]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// URLSigner is the subset of Storage needed to resolve a stored path into a
// signed URL.
type URLSigner interface {
	SignURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error)
}

// SignWithFallback tries each candidate in order and returns the first signed
// URL the backend accepts. When every candidate fails, the last error is
// surfaced.
func SignWithFallback(ctx context.Context, signer URLSigner, candidates []Candidate, expiresIn time.Duration) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("no storage candidates for path")
	}

	var lastErr error
	for _, c := range candidates {
		url, err := signer.SignURL(ctx, c.Bucket, c.Key, expiresIn)
		if err == nil {
			return url, nil
		}
		lastErr = err
	}
	return "", lastErr
}
