// Package billing provides domain models for the document lifecycle of a
// medical practice: invoices, quotes, pro-forma documents and credit notes.
//
// This package implements the billing bounded context, which is responsible for:
//   - Sequential, year-scoped document numbering (e.g. 2025/001)
//   - One-way conversion of quotes and pro-forma documents into invoices,
//     with line-item duplication and bidirectional back-links
//   - Tracking submission of healthcare invoices to the external fiscal
//     authority
//
// Key Aggregates:
//   - Document: A billing document with its line items and life-cycle state
//
// Ports:
//   - DocumentRepository: Persistence for documents and lines
//   - FiscalGateway: Authentication and submission against the external
//     fiscal-authority API
//
// The billing domain integrates with:
//   - Patient domain: Documents reference the billed patient, and fiscal
//     submissions carry the patient's personal and fiscal data
package billing
