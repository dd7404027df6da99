package sqlite

import (
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
)

var columns = map[string]string{
	domain.FieldID:        "id",
	domain.FieldStatus:    "status",
	domain.FieldCategory:  "category",
	domain.FieldTitle:     "title",
	domain.FieldPrice:     "price",
	domain.FieldCreatedAt: "created_at",
	domain.FieldViews:     "views",
}

// column resolves a descriptor field. Metadata fields live in the JSON
// document under the same dotted path.
func column(field string) (string, error) {
	if c, ok := columns[field]; ok {
		return c, nil
	}
	if strings.HasPrefix(field, "metadata.") {
		return fmt.Sprintf("json_extract(doc, '$.%s')", field), nil
	}
	return "", fmt.Errorf("%w: unknown field %q", domain.ErrInvalidFilter, field)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildQuery renders a descriptor as a SELECT over listings.
func buildQuery(d domain.QueryDescriptor) (string, []interface{}, error) {
	var sb strings.Builder
	sb.WriteString("SELECT doc FROM listings WHERE 1=1")
	args := make([]interface{}, 0, len(d.Predicates)+2)

	for _, p := range d.Predicates {
		col, err := column(p.Field)
		if err != nil {
			return "", nil, err
		}
		switch p.Op {
		case domain.OpEq:
			sb.WriteString(" AND " + col + " = ?")
			args = append(args, p.Value)
		case domain.OpGte, domain.OpLte:
			n, ok := p.Number()
			if !ok {
				return "", nil, fmt.Errorf("%w: %s expects a number", domain.ErrInvalidFilter, p.Field)
			}
			op := ">="
			if p.Op == domain.OpLte {
				op = "<="
			}
			sb.WriteString(" AND " + col + " " + op + " ?")
			args = append(args, n)
		case domain.OpBetween:
			r, ok := p.Range()
			if !ok {
				return "", nil, fmt.Errorf("%w: %s expects a range", domain.ErrInvalidFilter, p.Field)
			}
			sb.WriteString(" AND " + col + " BETWEEN ? AND ?")
			args = append(args, r.Min, r.Max)
		case domain.OpIn:
			values := p.Strings()
			if len(values) == 0 {
				sb.WriteString(" AND 0=1")
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = "?"
				args = append(args, v)
			}
			sb.WriteString(fmt.Sprintf(" AND %s IN (%s)", col, strings.Join(placeholders, ",")))
		case domain.OpContainsAll:
			for _, token := range p.Strings() {
				sb.WriteString(" AND LOWER(" + col + `) LIKE ? ESCAPE '\'`)
				args = append(args, "%"+likeEscaper.Replace(strings.ToLower(token))+"%")
			}
		default:
			return "", nil, fmt.Errorf("%w: unsupported operator %q", domain.ErrInvalidFilter, p.Op)
		}
	}

	order := make([]string, 0, len(d.Sort)+1)
	for _, s := range d.Sort {
		col, err := column(s.Field)
		if err != nil {
			return "", nil, err
		}
		if s.Descending {
			order = append(order, col+" DESC")
		} else {
			order = append(order, col+" ASC")
		}
	}
	order = append(order, "id ASC")
	sb.WriteString(" ORDER BY " + strings.Join(order, ", "))

	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, d.Page.Limit, d.Page.Offset)
	return sb.String(), args, nil
}
