package search

import (
	"context"
	"sort"

	apperrors "github.com/fenwick-ai/ragengine/internal/errors"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// assembleDocuments builds one DocumentMetadata per distinct document id
// referenced in sc.QueryResults: display name, best score
// across its chunks, and the set of referenced page numbers. A referenced
// document id absent from the collection's display-name lookup is a
// Configuration error, not a silent drop — it means the index and the
// file store have drifted out of sync.
func (s *Service) assembleDocuments(ctx context.Context, sc *types.SearchContext) ([]types.DocumentMetadata, error) {
	if len(sc.QueryResults) == 0 {
		return nil, nil
	}

	order := make([]string, 0, len(sc.QueryResults))
	seen := make(map[string]bool)
	byDoc := make(map[string]*types.DocumentMetadata)
	pages := make(map[string]map[int]bool)

	for _, chunk := range sc.QueryResults {
		docID := chunk.Chunk.Metadata.DocumentID
		if docID == "" {
			continue
		}
		if !seen[docID] {
			seen[docID] = true
			order = append(order, docID)
			byDoc[docID] = &types.DocumentMetadata{DocumentID: docID}
			pages[docID] = make(map[int]bool)
		}
		if score := chunk.Score(); score > byDoc[docID].BestScore {
			byDoc[docID].BestScore = score
		}
		if page := chunk.Chunk.Metadata.PageNumber; page > 0 {
			pages[docID][page] = true
		}
	}
	if len(order) == 0 {
		return nil, nil
	}

	names, err := s.documents.BatchGetDisplayNames(ctx, sc.ResolvedCollectionID, order)
	if err != nil {
		return nil, apperrors.NewStorageError(apperrors.ErrStorageUnavailable, "document metadata lookup failed: "+err.Error())
	}

	documents := make([]types.DocumentMetadata, 0, len(order))
	for _, docID := range order {
		name, ok := names[docID]
		if !ok {
			return nil, apperrors.NewConfigurationError("referenced document " + docID + " is not in the collection's file set")
		}
		meta := byDoc[docID]
		meta.DocumentName = name
		meta.PageNumbers = sortedPages(pages[docID])
		documents = append(documents, *meta)
	}

	sort.SliceStable(documents, func(i, j int) bool {
		if documents[i].BestScore != documents[j].BestScore {
			return documents[i].BestScore > documents[j].BestScore
		}
		return documents[i].DocumentID < documents[j].DocumentID
	})
	return documents, nil
}

func sortedPages(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	pages := make([]int, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
