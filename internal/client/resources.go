package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"association-admin-api/internal/model"
)

// ListOptions are the list query parameters. Zero values are omitted; each
// endpoint ignores the filters it does not support.
type ListOptions struct {
	Page     int
	Limit    int
	Name     string
	Client   string
	Period   string
	Status   string
	Priority string
	Archived *bool
	Birthday string
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("name", o.Name)
	set("client", o.Client)
	set("period", o.Period)
	set("status", o.Status)
	set("priority", o.Priority)
	set("birthday", o.Birthday)
	if o.Archived != nil {
		q.Set("archived", strconv.FormatBool(*o.Archived))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Page is one page of a list response.
type Page[T any] struct {
	Items []T
	Page  int
	Total int
	Limit int
}

// Resource is the CRUD surface shared by every collection endpoint.
type Resource[T any] struct {
	c    *Client
	path string
}

func (r Resource[T]) List(ctx context.Context, opts ListOptions) (*Page[T], error) {
	p := &Page[T]{}
	env, err := r.c.do(ctx, http.MethodGet, r.path+opts.query(), nil, &p.Items)
	if err != nil {
		return nil, err
	}
	p.Page, p.Total, p.Limit = env.Page, env.Total, env.Limit
	return p, nil
}

func (r Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var v T
	if _, err := r.c.do(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r Resource[T]) Create(ctx context.Context, in any) (*T, error) {
	var v T
	if _, err := r.c.do(ctx, http.MethodPost, r.path, in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r Resource[T]) Update(ctx context.Context, id string, in any) (*T, error) {
	var v T
	if _, err := r.c.do(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.c.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) Associates() Resource[model.Associate] {
	return Resource[model.Associate]{c: c, path: "/associates"}
}

func (c *Client) Appointments() Resource[model.Appointment] {
	return Resource[model.Appointment]{c: c, path: "/appointments"}
}

func (c *Client) Lawsuits() Resource[model.Lawsuit] {
	return Resource[model.Lawsuit]{c: c, path: "/lawsuits"}
}

func (c *Client) Tasks() Resource[model.Task] {
	return Resource[model.Task]{c: c, path: "/tasks"}
}

func (c *Client) Events() Resource[model.Event] {
	return Resource[model.Event]{c: c, path: "/events"}
}

// Users takes a password on Create and Update, so callers pass a map or
// their own struct rather than model.User, whose hash never serializes.
func (c *Client) Users() Resource[model.User] {
	return Resource[model.User]{c: c, path: "/users"}
}

func (c *Client) BirthdaysTomorrow(ctx context.Context) ([]model.Associate, error) {
	p, err := c.Associates().List(ctx, ListOptions{Birthday: "tomorrow", Limit: 100})
	if err != nil {
		return nil, err
	}
	return p.Items, nil
}

func (c *Client) AssociateSummary(ctx context.Context) (*model.AssociateSummary, error) {
	var s model.AssociateSummary
	if _, err := c.do(ctx, http.MethodGet, "/associates/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ExpiringAssociates lists memberships expiring within days, optionally
// including those already expired.
func (c *Client) ExpiringAssociates(ctx context.Context, days int, includeExpired bool) ([]model.Associate, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	if includeExpired {
		q.Set("expired", "true")
	}
	var out []model.Associate
	if _, err := c.do(ctx, http.MethodGet, "/associates/expiry-date?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LawsuitSummary(ctx context.Context) (*model.LawsuitSummary, error) {
	var s model.LawsuitSummary
	if _, err := c.do(ctx, http.MethodGet, "/lawsuits/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
