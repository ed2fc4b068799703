package semantic

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/indispare/quotation-rag/engine/domain"
)

// QdrantStore is a Store backed by a remote Qdrant collection. Record ids
// map to numeric point ids, so qdrant's own upsert gives the
// insert-or-replace semantics.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dim         int
}

// NewQdrant connects to Qdrant at the given gRPC address and ensures the
// collection exists with cosine distance.
func NewQdrant(ctx context.Context, addr, collection string, dim int) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dial qdrant %s: %v", ErrUnavailable, addr, err)
	}
	s := &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dim:         dim,
	}
	if err := s.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error { return s.conn.Close() }

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: list collections: %v", ErrUnavailable, err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dim),
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

// DeleteCollection drops the whole collection. Used by re-index tooling and
// integration tests.
func (s *QdrantStore) DeleteCollection(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert stores the entry as a point keyed by its record id.
func (s *QdrantStore) Upsert(ctx context.Context, e Entry) error {
	if len(e.Vector) != s.dim {
		return fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(e.Vector), s.dim)
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(e.ID)}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}},
			},
			Payload: metaPayload(e),
		}},
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert id %d: %w", e.ID, err)
	}
	return nil
}

// Search performs filtered k-NN search and re-ranks locally so the
// ascending-id tie-break holds regardless of backend ordering.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]SearchResult, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query vector has %d dims, index %d", ErrDimensionMismatch, len(vector), s.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if conds := filterConditions(filter); len(conds) > 0 {
		req.Filter = &pb.Filter{Must: conds}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		results[i] = SearchResult{
			ID:    int64(p.GetId().GetNum()),
			Score: p.GetScore(),
			Meta:  payloadMeta(p.GetPayload()),
		}
	}
	return rankResults(results, k), nil
}

// Delete removes the point for id; absent ids are a no-op.
func (s *QdrantStore) Delete(ctx context.Context, id int64) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete id %d: %w", id, err)
	}
	return nil
}

// Count returns the number of live points.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// CountByStatus issues one filtered count per known status. Entries indexed
// without a status are not reported by this backend.
func (s *QdrantStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	exact := true
	out := make(map[string]int)
	for status := range domain.ValidStatuses {
		resp, err := s.points.Count(ctx, &pb.CountPoints{
			CollectionName: s.collection,
			Exact:          &exact,
			Filter:         &pb.Filter{Must: []*pb.Condition{fieldMatch("status", status)}},
		})
		if err != nil {
			return nil, fmt.Errorf("semantic: count status %s: %w", status, err)
		}
		if n := int(resp.GetResult().GetCount()); n > 0 {
			out[status] = n
		}
	}
	return out, nil
}

func metaPayload(e Entry) map[string]*pb.Value {
	p := map[string]*pb.Value{
		"doc":    strValue(e.Text),
		"format": intValue(int64(e.Format)),
	}
	setStr := func(key, val string) {
		if val != "" {
			p[key] = strValue(val)
		}
	}
	setStr("customer_name", e.Meta.CustomerName)
	setStr("customer_email", e.Meta.CustomerEmail)
	setStr("quotation_code", e.Meta.QuotationCode)
	setStr("status", e.Meta.Status)
	setStr("item_name", e.Meta.ItemName)
	setStr("item_brand", e.Meta.ItemBrand)
	setStr("seller_name", e.Meta.SellerName)
	if e.Meta.TotalAmount != 0 {
		p["total_amount"] = doubleValue(e.Meta.TotalAmount)
	}
	if e.Meta.Quantity != 0 {
		p["quantity"] = intValue(e.Meta.Quantity)
	}
	if e.Meta.SellingPrice != 0 {
		p["selling_price"] = doubleValue(e.Meta.SellingPrice)
	}
	return p
}

func payloadMeta(p map[string]*pb.Value) Metadata {
	return Metadata{
		CustomerName:  p["customer_name"].GetStringValue(),
		CustomerEmail: p["customer_email"].GetStringValue(),
		QuotationCode: p["quotation_code"].GetStringValue(),
		Status:        p["status"].GetStringValue(),
		TotalAmount:   p["total_amount"].GetDoubleValue(),
		ItemName:      p["item_name"].GetStringValue(),
		ItemBrand:     p["item_brand"].GetStringValue(),
		Quantity:      p["quantity"].GetIntegerValue(),
		SellingPrice:  p["selling_price"].GetDoubleValue(),
		SellerName:    p["seller_name"].GetStringValue(),
	}
}

func filterConditions(f *Filter) []*pb.Condition {
	if f.IsZero() {
		return nil
	}
	var conds []*pb.Condition
	add := func(key, val string) {
		if val != "" {
			conds = append(conds, fieldMatch(key, val))
		}
	}
	add("status", f.Status)
	add("customer_name", f.CustomerName)
	add("quotation_code", f.QuotationCode)
	add("seller_name", f.SellerName)
	add("item_brand", f.ItemBrand)
	return conds
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

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}}
}

func doubleValue(f float64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: f}}
}

var _ Store = (*QdrantStore)(nil)
