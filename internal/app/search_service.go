package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"gopherai-kb/internal/model"
)

const (
	MatchKeyword  = "keyword"
	MatchSemantic = "semantic"

	minQueryRunes        = 2
	keywordWeight        = 1.0
	semanticSnippetRunes = 200
)

type SearchOptions struct {
	KeywordLimit      int
	SemanticLimit     int
	SemanticThreshold float32
	SemanticWeight    float32
	SnippetWindow     int
	SemanticTimeout   time.Duration
	ScanBatch         int
}

type SearchResult struct {
	Document   model.Document `json:"document"`
	Score      float64        `json:"score"`
	Snippet    string         `json:"snippet"`
	PageNumber *int           `json:"page_number,omitempty"`
	MatchTypes []string       `json:"match_types"`
	Tags       []string       `json:"tags"`
}

type SearchResponse struct {
	Query           string         `json:"query"`
	Results         []SearchResult `json:"results"`
	KeywordMatches  int            `json:"keyword_matches"`
	SemanticMatches int            `json:"semantic_matches"`
	SemanticEnabled bool           `json:"semantic_enabled"`
}

// SearchService ranks documents by combining keyword and embedding similarity matches.
type SearchService struct {
	docs     DocumentStore
	chunks   ChunkStore
	tags     TagStore
	embedder Embedder
	cache    QueryEmbeddingCache
	opts     SearchOptions
}

func NewSearchService(
	docs DocumentStore,
	chunks ChunkStore,
	tags TagStore,
	embedder Embedder,
	cache QueryEmbeddingCache,
	opts SearchOptions,
) *SearchService {
	if opts.KeywordLimit <= 0 {
		opts.KeywordLimit = 50
	}
	if opts.SemanticLimit <= 0 {
		opts.SemanticLimit = 20
	}
	if opts.SemanticWeight <= 0 {
		opts.SemanticWeight = 0.8
	}
	if opts.SnippetWindow <= 0 {
		opts.SnippetWindow = 100
	}
	if opts.ScanBatch <= 0 {
		opts.ScanBatch = 500
	}
	return &SearchService{
		docs:     docs,
		chunks:   chunks,
		tags:     tags,
		embedder: embedder,
		cache:    cache,
		opts:     opts,
	}
}

// documentHit accumulates everything one document earned across both search modes.
type documentHit struct {
	score          float64
	keyword        bool
	semantic       bool
	snippet        string
	snippetPage    *int
	fallback       string
	fallbackPage   *int
	semanticChunk  uint
	semanticPage   *int
	hasSemanticHit bool
}

func (s *SearchService) Search(ctx context.Context, query string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	resp := &SearchResponse{
		Query:           query,
		Results:         []SearchResult{},
		SemanticEnabled: s.semanticEnabled(),
	}
	if utf8.RuneCountInString(query) < minQueryRunes {
		return resp, nil
	}

	var keywordChunks []model.Chunk
	var semanticChunks []scoredChunk

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.chunks.SearchKeyword(gctx, query, s.opts.KeywordLimit)
		if err != nil {
			return fmt.Errorf("%w: keyword search failed: %w", ErrSearchUnavailable, err)
		}
		keywordChunks = found
		return nil
	})
	if resp.SemanticEnabled {
		g.Go(func() error {
			found, err := s.semanticSearch(gctx, query)
			if err != nil {
				log.Printf("semantic search for %q failed, using keyword results only: %v", query, err)
				return nil
			}
			semanticChunks = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp.KeywordMatches = len(keywordChunks)
	resp.SemanticMatches = len(semanticChunks)

	hits := make(map[uint]*documentHit)
	hit := func(id uint) *documentHit {
		h, ok := hits[id]
		if !ok {
			h = &documentHit{}
			hits[id] = h
		}
		return h
	}

	for _, c := range keywordChunks {
		h := hit(c.DocumentID)
		h.score += keywordWeight
		h.keyword = true
		if h.snippet == "" {
			if snippet, ok := keywordSnippet(c.Content, query, s.opts.SnippetWindow); ok {
				h.snippet = snippet
				h.snippetPage = c.PageNumber
			} else if h.fallback == "" {
				// the database matched with a different case folding
				h.fallback = leadingSnippet(c.Content, semanticSnippetRunes)
				h.fallbackPage = c.PageNumber
			}
		}
	}
	for _, c := range semanticChunks {
		h := hit(c.documentID)
		h.score += float64(c.score * s.opts.SemanticWeight)
		h.semantic = true
		if !h.hasSemanticHit {
			h.hasSemanticHit = true
			h.semanticChunk = c.chunkID
			h.semanticPage = c.pageNumber
		}
	}
	if len(hits) == 0 {
		return resp, nil
	}

	if err := s.fillSemanticSnippets(ctx, hits); err != nil {
		return nil, err
	}
	for _, h := range hits {
		if h.snippet == "" {
			h.snippet, h.snippetPage = h.fallback, h.fallbackPage
		}
	}

	ids := make([]uint, 0, len(hits))
	for id := range hits {
		ids = append(ids, id)
	}
	docs, err := s.docs.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: load documents failed: %w", ErrSearchUnavailable, err)
	}
	tags, err := s.tags.ListByDocumentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: load tags failed: %w", ErrSearchUnavailable, err)
	}

	for _, doc := range docs {
		h := hits[doc.ID]
		matchTypes := make([]string, 0, 2)
		if h.keyword {
			matchTypes = append(matchTypes, MatchKeyword)
		}
		if h.semantic {
			matchTypes = append(matchTypes, MatchSemantic)
		}
		docTags := tags[doc.ID]
		if docTags == nil {
			docTags = []string{}
		}
		resp.Results = append(resp.Results, SearchResult{
			Document:   doc,
			Score:      h.score,
			Snippet:    h.snippet,
			PageNumber: h.snippetPage,
			MatchTypes: matchTypes,
			Tags:       docTags,
		})
	}

	sort.SliceStable(resp.Results, func(i, j int) bool {
		a, b := resp.Results[i], resp.Results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Document.CreatedAt.Equal(b.Document.CreatedAt) {
			return a.Document.CreatedAt.After(b.Document.CreatedAt)
		}
		return a.Document.ID > b.Document.ID
	})
	return resp, nil
}

func (s *SearchService) semanticEnabled() bool {
	return s.embedder != nil && s.embedder.IsConfigured()
}

// semanticSearch scores every stored chunk against the query embedding.
func (s *SearchService) semanticSearch(ctx context.Context, query string) ([]scoredChunk, error) {
	if s.opts.SemanticTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SemanticTimeout)
		defer cancel()
	}

	queryVec, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	limit := s.opts.SemanticLimit
	candidates := make([]scoredChunk, 0, limit*2)
	err = s.chunks.ScanEmbeddings(ctx, s.opts.ScanBatch, func(batch []model.Chunk) error {
		for i := range batch {
			score := cosineSimilarity(queryVec, batch[i].EmbeddingVector())
			if score <= s.opts.SemanticThreshold {
				continue
			}
			candidates = append(candidates, scoredChunk{
				chunkID:    batch[i].ID,
				documentID: batch[i].DocumentID,
				pageNumber: batch[i].PageNumber,
				score:      score,
			})
		}
		if len(candidates) > limit*2 {
			candidates = topKScored(candidates, limit)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return topKScored(candidates, limit), nil
}

func (s *SearchService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if s.cache != nil {
		vec, ok, err := s.cache.Get(ctx, query)
		if err != nil {
			log.Printf("query embedding cache get failed: %v", err)
		} else if ok {
			return vec, nil
		}
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, query, vec); err != nil {
			log.Printf("query embedding cache set failed: %v", err)
		}
	}
	return vec, nil
}

// fillSemanticSnippets loads the best semantic chunk of every document that has no keyword snippet.
func (s *SearchService) fillSemanticSnippets(ctx context.Context, hits map[uint]*documentHit) error {
	var chunkIDs []uint
	for _, h := range hits {
		if h.snippet == "" && h.hasSemanticHit {
			chunkIDs = append(chunkIDs, h.semanticChunk)
		}
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	chunks, err := s.chunks.ListByIDs(ctx, chunkIDs)
	if err != nil {
		return fmt.Errorf("%w: load snippet chunks failed: %w", ErrSearchUnavailable, err)
	}
	byID := make(map[uint]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	for _, h := range hits {
		if h.snippet != "" || !h.hasSemanticHit {
			continue
		}
		if c, ok := byID[h.semanticChunk]; ok {
			h.snippet = leadingSnippet(c.Content, semanticSnippetRunes)
			h.snippetPage = h.semanticPage
		}
	}
	return nil
}
