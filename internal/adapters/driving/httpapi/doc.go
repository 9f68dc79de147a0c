// Package httpapi exposes ingestion, retrieval and aggregation over HTTP
// using gin.
//
// Routes:
//
//	POST /api/v1/records              ingest one record or an array of records
//	GET  /api/v1/query?q=&k=          similarity search
//	GET  /api/v1/pivot?min_mentions=&metric=&top=
//	GET  /api/v1/mentions?top=
//	GET  /api/v1/tickers?t=NVDA&t=AMD sentiment for specific tickers
//	GET  /healthz
//
// Every response uses the envelope {"code", "message", "data"}. Invalid
// input maps to 400 and an unavailable embedding backend to 503.
package httpapi
