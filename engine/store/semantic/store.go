// Package semantic implements the embedding-based vector store backend on top
// of Qdrant. Documents are stored as one root point plus one point per chunk;
// chunk points carry a parent_document_id back-reference so searches can be
// reported at document granularity.
package semantic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Sergey0703/aiassistant/engine/chunk"
	"github.com/Sergey0703/aiassistant/engine/domain"
)

// DefaultLimit caps search results when the query does not set one.
const DefaultLimit = 5

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// pointsAPI is the subset of the Qdrant points client the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// collectionsAPI is the subset of the Qdrant collections client the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store is the sole owner of all Qdrant operations.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	embed       Embedder
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr, collection string, embed Embedder) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embed:       embed,
	}, nil
}

// NewWithClients creates a Store with injected clients. Used in tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, embed Embedder) *Store {
	return &Store{
		points:      points,
		collections: collections,
		collection:  collection,
		embed:       embed,
	}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Kind identifies the backend type.
func (s *Store) Kind() string { return "semantic" }

// EnsureCollection creates the collection if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	d := uint64(dims)
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", s.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (s *Store) DeleteCollection(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", s.collection, err)
	}
	return nil
}

// Ingest stores a document as a root point plus one point per chunk. Chunk
// points are the searchable units for multi-chunk documents; the root point is
// searchable only for single-chunk documents so each document surfaces once.
func (s *Store) Ingest(ctx context.Context, doc domain.Document) error {
	multiChunk := len(doc.Chunks) > 1
	points := make([]*pb.PointStruct, 0, len(doc.Chunks)+1)

	// user metadata first so the canonical fields below always win
	rootPayload := make(map[string]any, len(doc.Metadata)+10)
	for k, v := range doc.Metadata {
		rootPayload[k] = v
	}
	rootPayload["doc_id"] = doc.ID
	rootPayload["filename"] = doc.Filename
	rootPayload["category"] = doc.Category
	rootPayload["content"] = doc.Content
	rootPayload["is_chunk"] = false
	rootPayload["indexed"] = !multiChunk
	rootPayload["chunks_count"] = len(doc.Chunks)
	rootPayload["content_length"] = len(doc.Content)
	rootPayload["word_count"] = len(strings.Fields(doc.Content))
	rootPayload["added_at"] = doc.CreatedAt.Unix()
	rootVec, err := s.embed.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("semantic: embed document %s: %w", doc.ID, err)
	}
	points = append(points, newPoint(pointID(doc.ID), rootVec, rootPayload))

	if multiChunk {
		for i, text := range doc.Chunks {
			vec, err := s.embed.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("semantic: embed chunk %d of %s: %w", i, doc.ID, err)
			}
			points = append(points, newPoint(pointID(chunk.ChunkID(doc.ID, i)), vec, map[string]any{
				"content":            text,
				"parent_document_id": doc.ID,
				"chunk_index":        i,
				"is_chunk":           true,
				"indexed":            true,
				"filename":           doc.Filename,
				"category":           doc.Category,
				"added_at":           doc.CreatedAt.Unix(),
			}))
		}
	}

	wait := true
	_, err = s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search embeds the query and runs k-NN similarity search. Qdrant's cosine
// score is already a similarity, so the relevance transform reduces to
// clamping it into [0,1]. Results below MinRelevance are excluded.
func (s *Store) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	vec, err := s.embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}

	must := []*pb.Condition{boolMatch("indexed", true)}
	if q.Category != "" {
		must = append(must, fieldMatch("category", q.Category))
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vec,
		Limit:          uint64(limit),
		Filter:         &pb.Filter{Must: must},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		score := clamp01(float64(p.GetScore()))
		if score < q.MinRelevance {
			continue
		}
		payload := p.GetPayload()
		sr := domain.SearchResult{
			Relevance: score,
			Metadata:  map[string]string{},
		}
		for k, v := range payload {
			switch k {
			case "content":
				sr.Content = v.GetStringValue()
			case "filename":
				sr.Filename = v.GetStringValue()
			case "doc_id", "parent_document_id":
				// parent wins below
			default:
				sr.Metadata[k] = valueString(v)
			}
		}
		sr.DocumentID = payload["parent_document_id"].GetStringValue()
		if sr.DocumentID == "" {
			sr.DocumentID = payload["doc_id"].GetStringValue()
		}
		results = append(results, sr)
	}
	return results, nil
}

// AllDocuments returns the root documents (never individual chunks), newest
// first.
func (s *Store) AllDocuments(ctx context.Context) ([]domain.Document, error) {
	points, err := s.scrollRoots(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, documentFromPayload(p.GetPayload()))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

// Delete removes the root document and every chunk referencing it. Returns
// false when the id is unknown so batch callers can continue past misses.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	got, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.collection,
		Ids:            []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(id)}}},
	})
	if err != nil {
		return false, fmt.Errorf("semantic: get %s: %w", id, err)
	}
	if len(got.GetResult()) == 0 {
		return false, nil
	}

	wait := true
	_, err = s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Should: []*pb.Condition{
						fieldMatch("doc_id", id),
						fieldMatch("parent_document_id", id),
					},
				},
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("semantic: delete %s: %w", id, err)
	}
	return true, nil
}

// Update replaces content and/or metadata by delete-then-reingest, keeping the
// same document id. Returns false when the id is unknown.
func (s *Store) Update(ctx context.Context, id string, upd domain.DocumentUpdate) (bool, error) {
	got, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.collection,
		Ids:            []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(id)}}},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return false, fmt.Errorf("semantic: get %s: %w", id, err)
	}
	if len(got.GetResult()) == 0 {
		return false, nil
	}

	doc := documentFromPayload(got.GetResult()[0].GetPayload())
	doc.ID = id
	if upd.Content != nil {
		doc.Content = *upd.Content
	}
	for k, v := range upd.Metadata {
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		doc.Metadata[k] = v
	}
	chunks, err := chunk.Split(doc.Content, chunk.DefaultSize, chunk.DefaultOverlap)
	if err != nil {
		return false, fmt.Errorf("semantic: rechunk %s: %w", id, err)
	}
	doc.Chunks = chunks

	if _, err := s.Delete(ctx, id); err != nil {
		return false, err
	}
	if err := s.Ingest(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

// Stats reports document count and the set of categories.
func (s *Store) Stats(ctx context.Context) (domain.StoreStats, error) {
	exact := true
	count, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Filter:         &pb.Filter{Must: []*pb.Condition{boolMatch("is_chunk", false)}},
		Exact:          &exact,
	})
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("semantic: count: %w", err)
	}

	points, err := s.scrollRoots(ctx)
	if err != nil {
		return domain.StoreStats{}, err
	}
	set := map[string]bool{}
	for _, p := range points {
		if c := p.GetPayload()["category"].GetStringValue(); c != "" {
			set[c] = true
		}
	}
	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return domain.StoreStats{
		TotalDocuments: int(count.GetResult().GetCount()),
		Categories:     categories,
		Backend:        s.Kind(),
	}, nil
}

// scrollRoots pages through all root (non-chunk) points.
func (s *Store) scrollRoots(ctx context.Context) ([]*pb.RetrievedPoint, error) {
	var all []*pb.RetrievedPoint
	var offset *pb.PointId
	limit := uint32(256)

	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Filter:         &pb.Filter{Must: []*pb.Condition{boolMatch("is_chunk", false)}},
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, fmt.Errorf("semantic: scroll: %w", err)
		}
		all = append(all, resp.GetResult()...)
		offset = resp.GetNextPageOffset()
		if offset == nil || len(resp.GetResult()) == 0 {
			return all, nil
		}
	}
}

// --- helpers ---

// pointID derives a deterministic UUID for a document or chunk id.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func newPoint(id string, vec []float32, payload map[string]any) *pb.PointStruct {
	values := make(map[string]*pb.Value, len(payload))
	for k, v := range payload {
		values[k] = toValue(v)
	}
	return &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vec}}},
		Payload: values,
	}
}

func toValue(v any) *pb.Value {
	switch tv := v.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func valueString(v *pb.Value) string {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return fmt.Sprint(k.IntegerValue)
	case *pb.Value_DoubleValue:
		return fmt.Sprint(k.DoubleValue)
	case *pb.Value_BoolValue:
		return fmt.Sprint(k.BoolValue)
	default:
		return v.String()
	}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func boolMatch(key string, value bool) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: value}},
			},
		},
	}
}

// documentFromPayload reconstructs a root document from its stored payload.
func documentFromPayload(payload map[string]*pb.Value) domain.Document {
	doc := domain.Document{Metadata: map[string]any{}}
	for k, v := range payload {
		switch k {
		case "doc_id":
			doc.ID = v.GetStringValue()
		case "filename":
			doc.Filename = v.GetStringValue()
		case "category":
			doc.Category = v.GetStringValue()
		case "content":
			doc.Content = v.GetStringValue()
		case "added_at":
			doc.CreatedAt = time.Unix(v.GetIntegerValue(), 0)
		case "is_chunk", "indexed":
			// bookkeeping fields, not user metadata
		default:
			doc.Metadata[k] = valueString(v)
		}
	}
	return doc
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
