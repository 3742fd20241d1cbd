// Package ragpipe provides a Go client for the ragpipe RAG pipeline API.
//
// The client talks to a running ragpipe server over HTTP and covers the
// full surface: ingestion, retrieval-augmented queries, the ReAct agent,
// query analysis and source management.
//
//	client, _ := ragpipe.New("http://localhost:8000",
//	    ragpipe.WithAPIKey(os.Getenv("RAGPIPE_API_KEY")),
//	)
//
//	report, _ := client.IngestFiles(ctx, []string{"docs/intro.pdf"}, nil)
//	answer, _ := client.Query(ctx, "what is vector search?", 5)
//	fmt.Println(answer.Response)
package ragpipe
