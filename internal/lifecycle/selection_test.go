package lifecycle

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/domain"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

func TestSubmitQuotationComputesTotals(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	contractor := seedUser(t, conn, "c1@test", models.RoleContractor, "Acme")
	rfq := mustCreateRFQ(t, engine, actorFor(pm), CreateRFQInput{
		Title: "x", ScopeOfWork: "y", TargetContractorIDs: []uint{contractor.ID},
	})
	forceRFQStatus(t, conn, rfq.ID, models.RFQStatusReceived)

	quote, err := engine.SubmitQuotation(context.Background(), actorFor(contractor), SubmitQuotationInput{
		RFQNumber: rfq.Number, Items: testItems,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if quote.QuoteNumber != "PMQ-0001" {
		t.Fatalf("quote number = %s", quote.QuoteNumber)
	}
	if quote.Subtotal != 200 || quote.Tax != 30 || quote.Total != 230 {
		t.Fatalf("totals = %.2f/%.2f/%.2f", quote.Subtotal, quote.Tax, quote.Total)
	}
	if quote.Status != models.QuotationStatusSentToCustomer {
		t.Fatalf("status = %s", quote.Status)
	}
	if quote.CreatedByID == nil || *quote.CreatedByID != contractor.ID {
		t.Fatalf("created_by = %v", quote.CreatedByID)
	}
}

func TestSubmitQuotationTargetingRules(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	targeted := seedUser(t, conn, "c1@test", models.RoleContractor, "Acme")
	colleague := seedUser(t, conn, "c2@test", models.RoleContractorSeniorManager, "Acme")
	outsider := seedUser(t, conn, "c3@test", models.RoleContractor, "Rival")
	rfq := mustCreateRFQ(t, engine, actorFor(pm), CreateRFQInput{
		Title: "x", ScopeOfWork: "y", TargetContractorIDs: []uint{targeted.ID},
	})
	forceRFQStatus(t, conn, rfq.ID, models.RFQStatusReceived)

	// A colleague sharing the targeted contractor's company may answer.
	if _, err := engine.SubmitQuotation(context.Background(), actorFor(colleague), SubmitQuotationInput{
		RFQNumber: rfq.Number, Items: testItems,
	}); err != nil {
		t.Fatalf("colleague submit: %v", err)
	}

	_, err := engine.SubmitQuotation(context.Background(), actorFor(outsider), SubmitQuotationInput{
		RFQNumber: rfq.Number, Items: testItems,
	})
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
}

func TestSubmitQuotationClosedRFQ(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	contractor := seedUser(t, conn, "c1@test", models.RoleContractor, "Acme")
	rfq := mustCreateRFQ(t, engine, actorFor(pm), CreateRFQInput{
		Title: "x", ScopeOfWork: "y", TargetContractorIDs: []uint{contractor.ID},
	})
	forceRFQStatus(t, conn, rfq.ID, models.RFQStatusRejected)

	_, err := engine.SubmitQuotation(context.Background(), actorFor(contractor), SubmitQuotationInput{
		RFQNumber: rfq.Number, Items: testItems,
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAdminQuotationAdvancesRFQ(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	admin := seedUser(t, conn, "admin@test", models.RoleAdmin, "")
	rfq := mustCreateRFQ(t, engine, actorFor(pm), CreateRFQInput{Title: "x", ScopeOfWork: "y"})
	forceRFQStatus(t, conn, rfq.ID, models.RFQStatusUnderReview)

	quote, err := engine.SubmitQuotation(context.Background(), actorFor(admin), SubmitQuotationInput{
		RFQNumber: rfq.Number, Items: testItems,
	})
	if err != nil {
		t.Fatalf("admin submit: %v", err)
	}
	if quote.CreatedByID != nil {
		t.Fatalf("admin quote should have no author link, got %v", quote.CreatedByID)
	}

	reloaded, err := engine.rfqByID(context.Background(), rfq.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != models.RFQStatusQuoted {
		t.Fatalf("rfq status = %s", reloaded.Status)
	}
}

// submitTwoCandidates drives an RFQ to UNDER_REVIEW with two contractor
// quotations and returns them.
func submitTwoCandidates(t *testing.T, engine *Engine, conn *gorm.DB, pm models.User) (*models.RFQ, models.Quotation, models.Quotation) {
	t.Helper()
	a := seedUser(t, conn, "alpha@test", models.RoleContractor, "Alpha Co")
	b := seedUser(t, conn, "beta@test", models.RoleContractor, "Beta Co")
	rfq := mustCreateRFQ(t, engine, actorFor(pm), CreateRFQInput{
		Title: "Lobby renovation", ScopeOfWork: "Full repaint",
		TargetContractorIDs: []uint{a.ID, b.ID},
	})
	forceRFQStatus(t, conn, rfq.ID, models.RFQStatusUnderReview)

	qa, err := engine.SubmitQuotation(context.Background(), actorFor(a), SubmitQuotationInput{
		RFQNumber: rfq.Number, Items: []ItemInput{{Description: "Paint", Quantity: 1, UnitPrice: 1000}},
	})
	if err != nil {
		t.Fatalf("quote a: %v", err)
	}
	qb, err := engine.SubmitQuotation(context.Background(), actorFor(b), SubmitQuotationInput{
		RFQNumber: rfq.Number, Items: []ItemInput{{Description: "Paint", Quantity: 1, UnitPrice: 800}},
	})
	if err != nil {
		t.Fatalf("quote b: %v", err)
	}
	return rfq, *qa, *qb
}

func TestSelectQuotationSingleWinner(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	rfq, qa, qb := submitTwoCandidates(t, engine, conn, pm)

	got, err := engine.SelectQuotationForRFQ(context.Background(), actorFor(pm), rfq.Number, qb.ID)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Status != models.RFQStatusApproved {
		t.Fatalf("rfq status = %s", got.Status)
	}

	var winner, loser models.Quotation
	conn.First(&winner, qb.ID)
	conn.First(&loser, qa.ID)
	if winner.Status != models.QuotationStatusApproved {
		t.Fatalf("winner status = %s", winner.Status)
	}
	if loser.Status != models.QuotationStatusRejected || loser.RejectionReason != "Not selected" {
		t.Fatalf("loser = %s / %q", loser.Status, loser.RejectionReason)
	}

	var approvedCount int64
	conn.Model(&models.Quotation{}).
		Where("rfq_number = ? AND status = ?", rfq.Number, models.QuotationStatusApproved).
		Count(&approvedCount)
	if approvedCount != 1 {
		t.Fatalf("approved candidates = %d", approvedCount)
	}

	// Snapshots recorded for both decisions.
	var copies int64
	conn.Model(&models.PdfCopy{}).Where("owner_pm_id = ?", pm.ID).Count(&copies)
	if copies != 2 {
		t.Fatalf("pdf copies = %d", copies)
	}

	// Re-selecting conflicts; the winner set never changes after the fact.
	if _, err := engine.SelectQuotationForRFQ(context.Background(), actorFor(pm), rfq.Number, qa.ID); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict on re-select, got %v", err)
	}
}

func TestSelectQuotationRejectsNonCandidate(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	rfq, _, _ := submitTwoCandidates(t, engine, conn, pm)

	_, err := engine.SelectQuotationForRFQ(context.Background(), actorFor(pm), rfq.Number, 99999)
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestConvertRFQToOrderExactlyOnce(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	rfq, _, qb := submitTwoCandidates(t, engine, conn, pm)

	if _, err := engine.SelectQuotationForRFQ(context.Background(), actorFor(pm), rfq.Number, qb.ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	order, err := engine.ConvertRFQToOrder(context.Background(), actorFor(pm), rfq.Number)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if order.OrderNumber != "PMO-0001" {
		t.Fatalf("order number = %s", order.OrderNumber)
	}
	if order.TotalAmount != qb.Total {
		t.Fatalf("order total = %.2f want %.2f", order.TotalAmount, qb.Total)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("order status = %s", order.Status)
	}

	reloaded, err := engine.rfqByID(context.Background(), rfq.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != models.RFQStatusConvertedToOrder {
		t.Fatalf("rfq status = %s", reloaded.Status)
	}
	if reloaded.GeneratedOrderID == nil || *reloaded.GeneratedOrderID != order.ID {
		t.Fatalf("generated order id = %v", reloaded.GeneratedOrderID)
	}

	if _, err := engine.ConvertRFQToOrder(context.Background(), actorFor(pm), rfq.Number); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict on second convert, got %v", err)
	}
	var orderCount int64
	conn.Model(&models.Order{}).Count(&orderCount)
	if orderCount != 1 {
		t.Fatalf("orders = %d", orderCount)
	}
}

func TestRepairGeneratedOrderBackfill(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	rfq, _, qb := submitTwoCandidates(t, engine, conn, pm)
	if _, err := engine.SelectQuotationForRFQ(context.Background(), actorFor(pm), rfq.Number, qb.ID); err != nil {
		t.Fatal(err)
	}
	order, err := engine.ConvertRFQToOrder(context.Background(), actorFor(pm), rfq.Number)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a historical row converted before the link column existed.
	if err := conn.Model(&models.RFQ{}).Where("id = ?", rfq.ID).
		Update("generated_order_id", nil).Error; err != nil {
		t.Fatal(err)
	}

	got, err := engine.GetRFQ(context.Background(), actorFor(pm), rfq.Number)
	if err != nil {
		t.Fatal(err)
	}
	if got.GeneratedOrderID == nil || *got.GeneratedOrderID != order.ID {
		t.Fatalf("repair did not backfill: %v", got.GeneratedOrderID)
	}
}

func TestCompareQuotationsVisibility(t *testing.T) {
	engine, conn := setupEngine(t)
	pm := seedUser(t, conn, "pm@test", models.RolePropertyManager, "")
	other := seedUser(t, conn, "pm2@test", models.RolePropertyManager, "")
	rfq, _, _ := submitTwoCandidates(t, engine, conn, pm)

	_, quotes, err := engine.CompareQuotationsForRFQ(context.Background(), actorFor(pm), rfq.Number)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("candidates = %d", len(quotes))
	}

	if _, _, err := engine.CompareQuotationsForRFQ(context.Background(), actorFor(other), rfq.Number); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
