package mongodb

import (
	"fmt"
	"regexp"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fieldPaths maps descriptor fields to document paths. Fields not listed use
// the same name in both.
var fieldPaths = map[string]string{
	domain.FieldID: "_id",
}

func documentPath(field string) string {
	if p, ok := fieldPaths[field]; ok {
		return p
	}
	return field
}

// buildFilter translates descriptor predicates into a Mongo filter document.
func buildFilter(d domain.QueryDescriptor) (bson.D, error) {
	filter := bson.D{}
	var and bson.A
	for _, p := range d.Predicates {
		path := documentPath(p.Field)
		switch p.Op {
		case domain.OpEq:
			filter = append(filter, bson.E{Key: path, Value: p.Value})
		case domain.OpGte, domain.OpLte:
			n, ok := p.Number()
			if !ok {
				return nil, fmt.Errorf("%w: %s expects a number", domain.ErrInvalidFilter, p.Field)
			}
			op := "$gte"
			if p.Op == domain.OpLte {
				op = "$lte"
			}
			filter = append(filter, bson.E{Key: path, Value: bson.D{{Key: op, Value: n}}})
		case domain.OpBetween:
			r, ok := p.Range()
			if !ok {
				return nil, fmt.Errorf("%w: %s expects a range", domain.ErrInvalidFilter, p.Field)
			}
			filter = append(filter, bson.E{Key: path, Value: bson.D{{Key: "$gte", Value: r.Min}, {Key: "$lte", Value: r.Max}}})
		case domain.OpIn:
			values := p.Strings()
			if p.Field == domain.FieldID {
				filter = append(filter, bson.E{Key: path, Value: bson.D{{Key: "$in", Value: objectIDs(values)}}})
				continue
			}
			filter = append(filter, bson.E{Key: path, Value: bson.D{{Key: "$in", Value: values}}})
		case domain.OpContainsAll:
			for _, token := range p.Strings() {
				and = append(and, bson.D{{Key: path, Value: primitive.Regex{Pattern: regexp.QuoteMeta(token), Options: "i"}}})
			}
		default:
			return nil, fmt.Errorf("%w: unsupported operator %q", domain.ErrInvalidFilter, p.Op)
		}
	}
	if len(and) > 0 {
		filter = append(filter, bson.E{Key: "$and", Value: and})
	}
	return filter, nil
}

// objectIDs converts hex ids, dropping ids that cannot exist in the collection.
func objectIDs(ids []string) bson.A {
	out := bson.A{}
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func buildFindOptions(d domain.QueryDescriptor) *options.FindOptions {
	opts := options.Find().
		SetSkip(int64(d.Page.Offset)).
		SetLimit(int64(d.Page.Limit))
	sort := bson.D{}
	for _, s := range d.Sort {
		dir := 1
		if s.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: documentPath(s.Field), Value: dir})
	}
	if len(sort) == 0 {
		// Offsets need a stable order even when no sort was requested.
		sort = bson.D{{Key: "_id", Value: 1}}
	}
	return opts.SetSort(sort)
}
