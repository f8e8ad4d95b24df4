package main

import (
	"context"
	"fmt"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/rag"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
)

// seedDemoData loads a small knowledge base and solved-ticket corpus so a
// fresh install can be exercised end to end. Upserts are idempotent, so
// re-running the flag is harmless.
func seedDemoData(ctx context.Context, st *store.Store, ragService *rag.Service) error {
	knowledge := []store.KnowledgeRow{
		{ModuleName: "AP.Invoice", FieldName: "Invoice ID"},
		{ModuleName: "AP.Invoice", FieldName: "Invoice Date"},
		{ModuleName: "AP.Invoice", FieldName: "Amount"},
		{ModuleName: "PO.Creation", FieldName: "PO Number"},
		{ModuleName: "PO.Creation", FieldName: "Vendor Name"},
		{ModuleName: "PO.Creation", FieldName: "Delivery Date"},
		{ModuleName: "GL.Journal", FieldName: "Journal ID"},
		{ModuleName: "GL.Journal", FieldName: "Period"},
	}
	if _, err := st.UpsertModuleKnowledge(ctx, knowledge); err != nil {
		return fmt.Errorf("seed knowledge base: %w", err)
	}

	corpus := []models.SolvedTicket{
		{
			TicketKey:   "DEMO-101",
			Summary:     "User locked out after repeated login failures",
			Description: "Account locked following three failed login attempts on the ERP portal.",
			Resolution:  "Unlock account via admin console. Reset the failed-attempt counter and ask the user to clear cached credentials.",
		},
		{
			TicketKey:   "DEMO-102",
			Summary:     "Invoice stuck in approval workflow",
			Description: "Invoice INV-2201 pending approval for five days; approver left the company.",
			Resolution:  "Reassign the approval task to the backup approver group, then re-trigger the workflow from the pending step.",
		},
		{
			TicketKey:   "DEMO-103",
			Summary:     "Payment batch fails with currency mismatch",
			Description: "Nightly payment run aborts with error 50012 when vendor invoices carry mixed currencies.",
			Resolution:  "Split the batch by currency code before submission and correct the vendor master currency on the offending suppliers.",
		},
	}
	if _, err := ragService.UpsertSolvedTickets(ctx, corpus); err != nil {
		return fmt.Errorf("seed solved tickets: %w", err)
	}
	return nil
}
