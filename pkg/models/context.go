package models

// EntityContext is the set of resolved business entities a run's conditions
// and templates are evaluated against. Any entity may be nil; lookups
// against a missing entity report absence rather than erroring.
type EntityContext struct {
	Client     *Client
	Job        *Job
	Quote      *Quote
	Invoice    *Invoice
	Technician *Technician
	Company    *CompanySettings
}

// Field access goes through per-resource getter tables instead of dynamic
// property lookup so unknown fields are caught when a workflow is saved,
// not silently evaluated to false at run time.

var clientFields = map[string]func(*Client) any{
	"first_name": func(c *Client) any { return c.FirstName },
	"last_name":  func(c *Client) any { return c.LastName },
	"email":      func(c *Client) any { return c.Email },
	"phone":      func(c *Client) any { return c.Phone },
	"address":    func(c *Client) any { return c.Address },
	"status":     func(c *Client) any { return c.Status },
}

var jobFields = map[string]func(*Job) any{
	"date":          func(j *Job) any { return j.Date },
	"service_name":  func(j *Job) any { return j.ServiceName },
	"address":       func(j *Job) any { return j.Address },
	"status":        func(j *Job) any { return j.Status },
	"technician_id": func(j *Job) any { return j.TechnicianID },
}

var quoteFields = map[string]func(*Quote) any{
	"total":  func(q *Quote) any { return q.Total },
	"status": func(q *Quote) any { return q.Status },
	"link":   func(q *Quote) any { return q.Link },
}

var invoiceFields = map[string]func(*Invoice) any{
	"total":  func(i *Invoice) any { return i.Total },
	"status": func(i *Invoice) any { return i.Status },
	"link":   func(i *Invoice) any { return i.Link },
}

var companyFields = map[string]func(*CompanySettings) any{
	"name":     func(c *CompanySettings) any { return c.Name },
	"reply_to": func(c *CompanySettings) any { return c.ReplyTo },
	"phone":    func(c *CompanySettings) any { return c.Phone },
	"website":  func(c *CompanySettings) any { return c.Website },
}

// Lookup resolves context[resource][field]. The second return is false when
// the resource is unresolved in this context or the field is unknown.
func (ec *EntityContext) Lookup(resource, field string) (any, bool) {
	if ec == nil {
		return nil, false
	}

	switch resource {
	case "client":
		if ec.Client == nil {
			return nil, false
		}

		if getter, ok := clientFields[field]; ok {
			return getter(ec.Client), true
		}
	case "job":
		if ec.Job == nil {
			return nil, false
		}

		if getter, ok := jobFields[field]; ok {
			return getter(ec.Job), true
		}
	case "quote":
		if ec.Quote == nil {
			return nil, false
		}

		if getter, ok := quoteFields[field]; ok {
			return getter(ec.Quote), true
		}
	case "invoice":
		if ec.Invoice == nil {
			return nil, false
		}

		if getter, ok := invoiceFields[field]; ok {
			return getter(ec.Invoice), true
		}
	case "company":
		if ec.Company == nil {
			return nil, false
		}

		if getter, ok := companyFields[field]; ok {
			return getter(ec.Company), true
		}
	}

	return nil, false
}

// ValidFieldRef reports whether (resource, field) names a known accessor.
// Workflow validation rejects references this function does not know.
func ValidFieldRef(resource, field string) bool {
	switch resource {
	case "client":
		_, ok := clientFields[field]

		return ok
	case "job":
		_, ok := jobFields[field]

		return ok
	case "quote":
		_, ok := quoteFields[field]

		return ok
	case "invoice":
		_, ok := invoiceFields[field]

		return ok
	case "company":
		_, ok := companyFields[field]

		return ok
	default:
		return false
	}
}
