// Package gomodelservice provides a generic service facade over SQL-backed
// Go models.
//
// Define your tables as Go structs with struct tags, register them, and get a
// [service.Service] per model with finders, unique-key lookups, idempotent
// create helpers, factories and seeders, plus a REST-shaped resource adapter.
//
// The module is organized into these packages:
//
//   - [github.com/CaliLuke/go-modelservice/ast]: SQL AST nodes, dialects and compiler
//   - [github.com/CaliLuke/go-modelservice/gomodel]: ORM core: models, CRUD, queries, schema
//   - [github.com/CaliLuke/go-modelservice/driver]: database/sql openers for sqlite and postgres
//   - [github.com/CaliLuke/go-modelservice/factory]: fixture factories with random data
//   - [github.com/CaliLuke/go-modelservice/service]: the model service facade
//   - [github.com/CaliLuke/go-modelservice/resource]: index/store/show/update/destroy verbs
//   - [github.com/CaliLuke/go-modelservice/sqlgen]: code generator: SQL DDL to Go structs
//
// All packages compile and test against an in-memory sqlite database. The
// postgres driver is exercised by integration-tagged tests when
// MODELSERVICE_TEST_POSTGRES_DSN points at a server.
package gomodelservice
