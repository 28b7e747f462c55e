// Package main hosts the hnsync entrypoint.
//
// Architecture overview:
//   - Store: internal/store.Provider reads and replaces the published snapshot. Providers cover the Hugging Face
//     Hub (default, parquet shards committed through the Hub HTTP API with LFS for large uploads), GCS, Postgres, the
//     local filesystem and memory. store.Load classifies a read as found, absent or failed and retries failed reads.
//   - Fetcher: internal/fetcher runs the external story fetcher as a child process, either fresh (capped item
//     count) or incremental (stop at the highest stored id). Its stdout and stderr are streamed into zap.
//   - Merge: internal/dataset dedups by id with the fetched record winning and sorts ids descending; incidental
//     index columns are stripped before publishing.
//   - Orchestration: internal/syncer drives one run and reports an outcome. Early exits (no, empty or malformed
//     output, nothing new) leave the store untouched.
//   - Plumbing: Viper config with HNSYNC_ env overrides and HF_TOKEN for the Hub credential, zap logging,
//     Prometheus collectors pushed to a Pushgateway, and an optional Pub/Sub event after each publish.
//
// Operational notes:
//   - One run per process; the binary is meant to be driven by cron or a scheduler.
//   - SIGINT/SIGTERM cancel the run context, which kills the fetcher and aborts in-flight requests.
package main
