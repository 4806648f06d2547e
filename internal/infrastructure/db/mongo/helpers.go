package mongo

import (
	"math"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// objectID parses a hex id. Malformed ids can never match a document, so
// callers treat the false case as not found.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// searchClause builds a case-insensitive $or over fields. The term is quoted
// so user input is matched literally.
func searchClause(term string, fields ...string) bson.A {
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: rx})
	}
	return or
}

// pageOptions applies skip/limit for a 1-based page. A non-positive limit
// returns everything.
func pageOptions(opts *options.FindOptions, page, limit int) *options.FindOptions {
	if limit <= 0 {
		return opts
	}
	return opts.SetSkip(pageSkip(page, limit)).SetLimit(int64(limit))
}

// pageSkip is (page-1)*limit, saturating instead of overflowing so a huge
// page yields an empty result rather than a negative skip.
func pageSkip(page, limit int) int64 {
	if page < 1 || limit <= 0 {
		return 0
	}
	p, l := int64(page-1), int64(limit)
	if p > math.MaxInt64/l {
		return math.MaxInt64
	}
	return p * l
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
