// Package raggate provides a Go client for the raggate RAG gateway.
//
// The client talks to the gateway's HTTP tool surface: hybrid search,
// grounded summarization with citations, citation post-processing,
// document comparison and analysis, and corpus ingestion.
//
//	client := raggate.New("http://localhost:8080", raggate.WithAPIKey("secret"))
//
//	res, _ := client.Search(ctx, raggate.SearchRequest{
//	    Query: "remote work policy",
//	    TopK:  5,
//	})
//
//	sum, _ := client.Summarize(ctx, raggate.SummarizeRequest{
//	    Query:     "what is the remote work policy?",
//	    Documents: raggate.DocumentsOf(res),
//	})
package raggate
