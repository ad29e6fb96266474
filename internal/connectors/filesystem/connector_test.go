package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driving"
)

// recordingIngest captures SubmitDocument calls.
type recordingIngest struct {
	mu          sync.Mutex
	submissions []submission
}

type submission struct {
	collectionID string
	sourceRef    string
	content      string
	force        bool
}

var _ driving.IngestService = (*recordingIngest)(nil)

func (r *recordingIngest) CreateCollection(_ context.Context, _, _ string) (*domain.Collection, error) {
	return nil, nil
}

func (r *recordingIngest) SubmitDocument(_ context.Context, collectionID, sourceRef, content string, force bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, submission{collectionID, sourceRef, content, force})
	return "job-1", nil
}

func (r *recordingIngest) ReembedCollection(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (r *recordingIngest) ExcludeDocument(_ context.Context, _ string) error {
	return nil
}

func (r *recordingIngest) CollectionStatus(_ context.Context, _ string) (*driving.CollectionReport, error) {
	return nil, nil
}

func (r *recordingIngest) recorded() []submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]submission, len(r.submissions))
	copy(out, r.submissions)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSyncSubmitsTextFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "alpha notes")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "beta notes")
	writeFile(t, filepath.Join(root, "image.png"), "not text")
	writeFile(t, filepath.Join(root, ".hidden", "c.md"), "hidden notes")
	writeFile(t, filepath.Join(root, "empty.md"), "   ")

	ingest := &recordingIngest{}
	connector := New("col-1", root, ingest)

	submitted, err := connector.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, submitted)

	subs := ingest.recorded()
	require.Len(t, subs, 2)
	refs := []string{subs[0].sourceRef, subs[1].sourceRef}
	assert.Contains(t, refs[0]+refs[1], "a.md")
	assert.Contains(t, refs[0]+refs[1], "b.txt")
	for _, sub := range subs {
		assert.Equal(t, "col-1", sub.collectionID)
		assert.False(t, sub.force)
	}
}

func TestSyncNormalisesMarkdown(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.md"), "# Heading\n\nBody with **bold**.")

	ingest := &recordingIngest{}
	connector := New("col-1", root, ingest)

	_, err := connector.Sync(context.Background())
	require.NoError(t, err)

	subs := ingest.recorded()
	require.Len(t, subs, 1)
	assert.Equal(t, "Heading\n\nBody with bold.", subs[0].content)
}

func TestSyncMissingRoot(t *testing.T) {
	ingest := &recordingIngest{}
	connector := New("col-1", filepath.Join(t.TempDir(), "missing"), ingest)

	_, err := connector.Sync(context.Background())
	require.Error(t, err)
}

func TestWatchSubmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	ingest := &recordingIngest{}
	connector := New("col-1", root, ingest)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- connector.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(root, "fresh.md"), "new content to ingest")

	assert.Eventually(t, func() bool {
		return len(ingest.recorded()) == 1
	}, 5*time.Second, 50*time.Millisecond)

	subs := ingest.recorded()
	require.Len(t, subs, 1)
	assert.True(t, subs[0].force)
	assert.Equal(t, "new content to ingest", subs[0].content)
	assert.Equal(t, SourceRef(filepath.Join(root, "fresh.md")), subs[0].sourceRef)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchIgnoresNonTextFiles(t *testing.T) {
	root := t.TempDir()
	ingest := &recordingIngest{}
	connector := New("col-1", root, ingest)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go connector.Watch(ctx) //nolint:errcheck

	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(root, "binary.bin"), "payload")

	// The debounce window plus margin: nothing should arrive.
	time.Sleep(time.Second)
	assert.Empty(t, ingest.recorded())
}

func TestSourceRefRoundTrip(t *testing.T) {
	ref := SourceRef("/var/notes/outage.md")
	assert.Equal(t, "file:///var/notes/outage.md", ref)
	assert.Equal(t, "/var/notes/outage.md", PathFromSourceRef(ref))
}

func TestIsTextFile(t *testing.T) {
	assert.True(t, isTextFile("notes.md"))
	assert.True(t, isTextFile("NOTES.TXT"))
	assert.False(t, isTextFile("photo.jpg"))
	assert.False(t, isTextFile("no_extension"))
}
