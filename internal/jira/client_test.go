package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskdeck/internal/config"
)

func TestSearchUnconfigured(t *testing.T) {
	c := New(config.JiraConfig{}, nil)
	tickets, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 0 {
		t.Errorf("expected no tickets, got %d", len(tickets))
	}
}

func TestSearchVariantFallback(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jql := r.URL.Query().Get("jql")
		queries = append(queries, jql)
		// the richer variants are rejected, as on an instance without
		// the resolution field configured
		if strings.Contains(jql, "NOT IN") || strings.Contains(jql, "resolution") {
			http.Error(w, `{"errorMessages":["bad field"]}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"total": 1, "issues": [
			{"id": "1", "key": "ABC-1", "fields": {"summary": "only ticket", "status": {"name": "Open"}}}
		]}`)
	}))
	defer srv.Close()

	c := New(config.JiraConfig{
		BaseURL:        srv.URL,
		Email:          "me@example.com",
		Token:          "tok",
		ClosedStatuses: []string{"Done"},
	}, nil)

	tickets, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Key != "ABC-1" {
		t.Fatalf("expected ABC-1, got %+v", tickets)
	}
	if len(queries) != 3 {
		t.Errorf("expected 3 attempts (two rejected variants, one success), got %d: %v", len(queries), queries)
	}
}

func TestSearchPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("startAt")
		if start == "0" {
			issues := make([]string, searchPageSize)
			for i := range issues {
				issues[i] = fmt.Sprintf(`{"id": "%d", "key": "ABC-%d", "fields": {"summary": "t"}}`, i, i)
			}
			fmt.Fprintf(w, `{"total": %d, "issues": [%s]}`, searchPageSize+1, strings.Join(issues, ","))
			return
		}
		fmt.Fprintf(w, `{"total": %d, "issues": [{"id": "last", "key": "ABC-LAST", "fields": {"summary": "t"}}]}`, searchPageSize+1)
	}))
	defer srv.Close()

	c := New(config.JiraConfig{BaseURL: srv.URL, Token: "tok"}, nil)
	tickets, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != searchPageSize+1 {
		t.Fatalf("expected %d tickets across pages, got %d", searchPageSize+1, len(tickets))
	}
	if tickets[len(tickets)-1].Key != "ABC-LAST" {
		t.Errorf("last ticket: %q", tickets[len(tickets)-1].Key)
	}
}

func TestSearchAllVariantsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(config.JiraConfig{BaseURL: srv.URL, Token: "tok"}, nil)
	tickets, err := c.Search(context.Background())
	if err != nil {
		t.Fatalf("total failure must degrade to empty, got error: %v", err)
	}
	if len(tickets) != 0 {
		t.Errorf("expected empty list, got %d", len(tickets))
	}
}
