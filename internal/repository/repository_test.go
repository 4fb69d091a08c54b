package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gopherai-kb/internal/model"
	"gopherai-kb/internal/platform/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(context.Background(), "sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func intPtr(v int) *int { return &v }

func seedDocument(t *testing.T, db *gorm.DB, name string, contents ...string) *model.Document {
	t.Helper()
	ctx := context.Background()
	doc := &model.Document{Name: name, FileType: model.FileTypeText, MimeType: "text/plain", Size: 10}
	require.NoError(t, NewDocumentRepository(db).Create(ctx, doc))

	chunks := make([]model.Chunk, 0, len(contents))
	for i, content := range contents {
		c := model.Chunk{DocumentID: doc.ID, Content: content, Position: i, PageNumber: intPtr(i + 1)}
		c.SetEmbedding([]float32{float32(i + 1), 0.5})
		chunks = append(chunks, c)
	}
	require.NoError(t, NewChunkRepository(db).CreateBatch(ctx, chunks, 2))
	return doc
}

func TestDocumentRepositoryDeleteCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	docs := NewDocumentRepository(db)
	chunks := NewChunkRepository(db)
	tags := NewTagRepository(db)

	doc := seedDocument(t, db, "a.txt", "one", "two", "three")
	other := seedDocument(t, db, "b.txt", "four")
	require.NoError(t, tags.Add(ctx, doc.ID, "finance"))

	require.NoError(t, docs.DeleteCascade(ctx, doc.ID))

	got, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := chunks.CountByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	remaining, err := tags.ListByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	n, err = chunks.CountByDocumentID(ctx, other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDocumentRepositoryListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	first := seedDocument(t, db, "first.txt", "x")
	second := seedDocument(t, db, "second.txt", "y")

	list, err := NewDocumentRepository(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	require.NoError(t, NewDocumentRepository(db).UpdateSummary(ctx, first.ID, "short summary"))
	got, err := NewDocumentRepository(db).GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "short summary", *got.Summary)
}

func TestChunkRepositorySearchKeyword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewChunkRepository(db)
	seedDocument(t, db, "q3.txt", "Revenue for Q3 grew", "nothing here", "100% literal_match")

	got, err := repo.SearchKeyword(ctx, "REVENUE", 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Revenue for Q3 grew", got[0].Content)
	assert.Empty(t, got[0].EmbeddingVector(), "keyword search does not load embeddings")

	got, err = repo.SearchKeyword(ctx, "0%", 50)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = repo.SearchKeyword(ctx, "l_t", 50)
	require.NoError(t, err)
	assert.Empty(t, got, "underscore is not a wildcard")

	got, err = repo.SearchKeyword(ctx, "e", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestChunkRepositoryScanEmbeddings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewChunkRepository(db)
	seedDocument(t, db, "a.txt", "one", "two", "three")

	var seen [][]float32
	batches := 0
	err := repo.ScanEmbeddings(ctx, 2, func(chunks []model.Chunk) error {
		batches++
		for _, c := range chunks {
			seen = append(seen, c.EmbeddingVector())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
	assert.Equal(t, [][]float32{{1, 0.5}, {2, 0.5}, {3, 0.5}}, seen)
}

func TestChunkRepositoryListLeading(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, db, "a.txt", "p1", "p2", "p3", "p4")

	got, err := NewChunkRepository(db).ListLeading(ctx, doc.ID, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "p1", got[0].Content)
	assert.Equal(t, "p3", got[2].Content)
}

func TestTagRepositorySetSemantics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, db, "a.txt", "x")
	repo := NewTagRepository(db)

	require.NoError(t, repo.Add(ctx, doc.ID, "finance", "q3"))
	require.NoError(t, repo.Add(ctx, doc.ID, "finance"))

	tags, err := repo.ListByDocumentID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"finance", "q3"}, tags)

	require.NoError(t, repo.Remove(ctx, doc.ID, "q3"))
	byDoc, err := repo.ListByDocumentIDs(ctx, []uint{doc.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"finance"}, byDoc[doc.ID])
}

func TestCorpusSummaryRepositoryReplace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCorpusSummaryRepository(db)

	got, err := repo.Get(ctx, model.SummaryTypeExecutive)
	require.NoError(t, err)
	assert.Nil(t, got)

	for i := 1; i <= 2; i++ {
		require.NoError(t, repo.Replace(ctx, &model.CorpusSummary{
			SummaryType:      model.SummaryTypeExecutive,
			ExecutiveSummary: fmt.Sprintf("run %d", i),
			KeyThemes:        []string{"theme"},
			ImportantDates:   []model.ImportantDate{{Date: "2024-10-01", Description: "launch"}},
			DocumentCount:    i,
		}))
	}

	var count int64
	require.NoError(t, db.Model(&model.CorpusSummary{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err = repo.Get(ctx, model.SummaryTypeExecutive)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run 2", got.ExecutiveSummary)
	assert.Equal(t, 2, got.DocumentCount)
	assert.Equal(t, []string{"theme"}, []string(got.KeyThemes))
	assert.Equal(t, "launch", got.ImportantDates[0].Description)
}
