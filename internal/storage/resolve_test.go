package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCandidatesOrder(t *testing.T) {
	got := ResolveCandidates("documents/t1/d1/file.pdf", "uploads", []string{"ativus-files"})
	require.Equal(t, []Candidate{
		{Bucket: "documents", Key: "t1/d1/file.pdf"},
		{Bucket: "uploads", Key: "documents/t1/d1/file.pdf"},
		{Bucket: "ativus-files", Key: "documents/t1/d1/file.pdf"},
	}, got)
}

func TestResolveCandidatesNoSlash(t *testing.T) {
	got := ResolveCandidates("file.pdf", "uploads", nil)
	require.Equal(t, []Candidate{{Bucket: "uploads", Key: "file.pdf"}}, got)
}

func TestResolveCandidatesDedupe(t *testing.T) {
	// stored path already starts with the current bucket; the split form and
	// legacy duplicates must not repeat
	got := ResolveCandidates("uploads/a.pdf", "uploads", []string{"uploads"})
	require.Equal(t, []Candidate{
		{Bucket: "uploads", Key: "a.pdf"},
		{Bucket: "uploads", Key: "uploads/a.pdf"},
	}, got)
}

type scriptedSigner struct {
	failures int // candidates to reject before succeeding
	calls    []Candidate
}

func (s *scriptedSigner) SignURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	s.calls = append(s.calls, Candidate{Bucket: bucket, Key: path})
	if len(s.calls) <= s.failures {
		return "", fmt.Errorf("object not found in %s", bucket)
	}
	return "https://signed.example/" + bucket + "/" + path, nil
}

func TestSignWithFallbackStopsAtFirstSuccess(t *testing.T) {
	signer := &scriptedSigner{failures: 2}
	candidates := []Candidate{
		{Bucket: "b1", Key: "k"},
		{Bucket: "b2", Key: "k"},
		{Bucket: "b3", Key: "k"},
		{Bucket: "b4", Key: "k"},
	}

	url, err := SignWithFallback(context.Background(), signer, candidates, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/b3/k", url)
	// nothing after the first success is attempted
	assert.Equal(t, candidates[:3], signer.calls)
}

func TestSignWithFallbackAllFail(t *testing.T) {
	signer := &scriptedSigner{failures: 10}
	candidates := []Candidate{{Bucket: "b1", Key: "k"}, {Bucket: "b2", Key: "k"}}

	_, err := SignWithFallback(context.Background(), signer, candidates, time.Hour)
	require.Error(t, err)
	// the last candidate's error is the one surfaced
	assert.Contains(t, err.Error(), "b2")
}

func TestSignWithFallbackNoCandidates(t *testing.T) {
	_, err := SignWithFallback(context.Background(), &scriptedSigner{}, nil, time.Hour)
	require.Error(t, err)
}
