// Package services holds the application operations behind the HTTP handlers: account
// registration and login, listing queries, the ownership checked delete, and upload ingestion.
//
// Services return errors wrapping the sentinels in package common; handlers map them to
// HTTP statuses. None of the operations run in a transaction: multi-statement writes are
// sequential steps and a failure part way leaves the earlier steps committed.
package services
