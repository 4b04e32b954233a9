// Package app composes the bridge: it wires configuration, stores, ledger
// clients and services into one Application and manages their lifecycle.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── config/             # Environment configuration and channel bindings
//	├── domain/             # Domain models (pure data structures)
//	│   ├── witness/        # Witness records, proofs, relay outcomes
//	│   └── payment/        # Settlement requests, responses, verifications
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # CheckpointStore, PaymentStore
//	│   ├── memory/         # In-memory implementation, default and tests
//	│   ├── postgres/       # PostgreSQL implementation for production
//	│   └── redis/          # Redis implementation
//	├── services/
//	│   ├── relay/          # Witness channel relay engine
//	│   └── payment/        # Settlement payments and cache sweeper
//	├── httpapi/            # REST handlers, auth, CORS, rate limit, audit
//	├── system/             # Service lifecycle management
//	└── metrics/            # Prometheus collectors
//
// # Responsibilities
//
//   - Composing relay engines and the payment service with their stores and
//     ledger clients
//   - Disabling services whose ledger endpoints are not configured while the
//     rest of the bridge keeps running
//   - Answering channel status queries for the HTTP API
//
// Business rules live in the service packages; ledger protocol details live
// in internal/chain.
//
// # Dependency Direction
//
//	cmd/bridged/
//	      │
//	      ▼
//	internal/app/runtime/ (process wiring)
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/services/ (relay, payments)
//	      │           │
//	      │           └──► internal/chain/ (ledger clients)
//	      │
//	      └──► internal/app/storage/ (persistence)
package app
