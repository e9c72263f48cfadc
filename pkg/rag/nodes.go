package rag

// Node names registered with the graph. Routing tables reference these
// labels, so they must stay in sync with the pipeline wiring.
const (
	NodeQueryAnalyzer        = "query_analyzer"
	NodeRetriever            = "retriever"
	NodeRelevanceGrader      = "relevance_grader"
	NodeQueryRewriter        = "query_rewriter"
	NodeAnswerGenerator      = "answer_generator"
	NodeHallucinationChecker = "hallucination_checker"
	NodeComplete             = "complete"
	NodeFail                 = "fail"
)
