package ragpipe

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

type queryRequest struct {
	Question  string `json:"question"`
	TopK      int    `json:"top_k,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
}

// Query runs a RAG query: retrieve topK chunks, generate an answer.
// topK <= 0 uses the server default.
func (c *Client) Query(ctx context.Context, query string, topK int) (answer Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	err = c.postJSON(ctx, "/query", queryRequest{Question: query, TopK: topK}, &answer)
	return answer, err
}

// QueryAgent runs the query through the ReAct agent instead of plain RAG.
func (c *Client) QueryAgent(ctx context.Context, query string) (result AgentResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query_agent", start, err) }()

	err = c.postJSON(ctx, "/query", queryRequest{Question: query, AgentType: "react"}, &result)
	return result, err
}

type batchQueryRequest struct {
	Questions []string `json:"questions"`
	TopK      int      `json:"top_k,omitempty"`
}

type batchQueryResponse struct {
	TotalQueries int      `json:"total_queries"`
	Results      []Answer `json:"results"`
}

// BatchQuery runs several queries in one call. Per-query failures are
// reported in the corresponding Answer, not as an error.
func (c *Client) BatchQuery(ctx context.Context, queries []string, topK int) (answers []Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("batch_query", start, err) }()

	var resp batchQueryResponse
	if err = c.postJSON(ctx, "/query/batch", batchQueryRequest{Questions: queries, TopK: topK}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

type contextQueryRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	TopK     int    `json:"top_k,omitempty"`
}

// QueryWithContext answers the query with caller-provided context prepended
// before retrieval. topK <= 0 uses the server default.
func (c *Client) QueryWithContext(ctx context.Context, query, docContext string, topK int) (answer Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query_with_context", start, err) }()

	err = c.postJSON(ctx, "/query/with-context",
		contextQueryRequest{Question: query, Context: docContext, TopK: topK}, &answer)
	return answer, err
}

type suggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

// Suggestions expands a partial query into suggested questions.
// max <= 0 uses the server default.
func (c *Client) Suggestions(ctx context.Context, partial string, max int) (suggestions []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggestions", start, err) }()

	q := url.Values{"partial_query": {partial}}
	if max > 0 {
		q.Set("max_suggestions", strconv.Itoa(max))
	}
	var resp suggestionsResponse
	if err = c.get(ctx, "/suggestions", q, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

type analyzeRequest struct {
	Query string `json:"query"`
}

type analyzeResponse struct {
	Query  string `json:"query"`
	Intent Intent `json:"intent"`
}

// AnalyzeQuery classifies a query's intent.
func (c *Client) AnalyzeQuery(ctx context.Context, query string) (intent Intent, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze_query", start, err) }()

	var resp analyzeResponse
	if err = c.postJSON(ctx, "/analyze-query", analyzeRequest{Query: query}, &resp); err != nil {
		return Intent{}, err
	}
	return resp.Intent, nil
}
