package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chalatsithapelo-ops/square15management-sub012/internal/config"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/db"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/identity"
	"github.com/chalatsithapelo-ops/square15management-sub012/internal/models"
)

type e2e struct {
	t      *testing.T
	srv    *httptest.Server
	oracle *identity.Oracle
	conn   *gorm.DB
}

func setupE2E(t *testing.T) *e2e {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.SeedRoleProfiles(conn); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := config.Load()
	srv := httptest.NewServer(NewApp(conn, cfg))
	t.Cleanup(srv.Close)
	return &e2e{t: t, srv: srv, oracle: identity.NewOracle(cfg.App.AuthSecret, conn), conn: conn}
}

func (e *e2e) user(email string, role models.Role, company string) models.User {
	e.t.Helper()
	u := models.User{Email: email, Name: email, Role: role, CompanyAffiliation: company, PortalActive: true}
	if err := e.conn.Create(&u).Error; err != nil {
		e.t.Fatal(err)
	}
	return u
}

// call performs an authenticated JSON request and decodes the response.
func (e *e2e) call(u models.User, method, path string, payload, out any) int {
	e.t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			e.t.Fatal(err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		e.t.Fatal(err)
	}
	cred, err := e.oracle.IssueCredential(&u, time.Hour)
	if err != nil {
		e.t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+cred)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestProcurementLifecycleOverHTTP(t *testing.T) {
	e := setupE2E(t)
	pm := e.user("pm@test", models.RolePropertyManager, "")
	admin := e.user("admin@test", models.RoleAdmin, "")
	alpha := e.user("alpha@test", models.RoleContractor, "Alpha Co")
	beta := e.user("beta@test", models.RoleContractor, "Beta Co")

	// PM submits an RFQ targeting both contractors.
	var rfq models.RFQ
	status := e.call(pm, "POST", "/rfqs", map[string]any{
		"title":                 "Lobby renovation",
		"scope_of_work":         "Full repaint, two coats",
		"urgency":               "HIGH",
		"target_contractor_ids": []uint{alpha.ID, beta.ID},
	}, &rfq)
	if status != http.StatusCreated {
		t.Fatalf("create rfq status = %d", status)
	}
	if rfq.Number == "" || rfq.Status != models.RFQStatusSubmitted {
		t.Fatalf("rfq = %+v", rfq)
	}

	// Contractors cannot create RFQs.
	if status := e.call(alpha, "POST", "/rfqs", map[string]any{
		"title": "x", "scope_of_work": "y",
	}, nil); status != http.StatusForbidden {
		t.Fatalf("contractor create rfq status = %d", status)
	}

	// Intake and review.
	if status := e.call(admin, "POST", "/rfqs/"+rfq.Number+"/acknowledge", nil, nil); status != http.StatusOK {
		t.Fatalf("acknowledge status = %d", status)
	}
	if status := e.call(pm, "POST", "/rfqs/"+rfq.Number+"/review", nil, nil); status != http.StatusOK {
		t.Fatalf("review status = %d", status)
	}

	// Both contractors quote.
	var quoteA, quoteB models.Quotation
	if status := e.call(alpha, "POST", "/quotations", map[string]any{
		"rfq_number": rfq.Number,
		"items":      []map[string]any{{"description": "Paint", "quantity": 1, "unit_price": 1000}},
	}, &quoteA); status != http.StatusCreated {
		t.Fatalf("quote a status = %d", status)
	}
	if status := e.call(beta, "POST", "/quotations", map[string]any{
		"rfq_number": rfq.Number,
		"items":      []map[string]any{{"description": "Paint", "quantity": 1, "unit_price": 800}},
	}, &quoteB); status != http.StatusCreated {
		t.Fatalf("quote b status = %d", status)
	}

	// Contractors never see each other's prices.
	var alphaQuotes []models.Quotation
	if status := e.call(alpha, "GET", "/quotations", nil, &alphaQuotes); status != http.StatusOK {
		t.Fatalf("list quotes status = %d", status)
	}
	if len(alphaQuotes) != 1 || alphaQuotes[0].ID != quoteA.ID {
		t.Fatalf("alpha sees %d quotes", len(alphaQuotes))
	}

	// PM compares and selects the cheaper quote.
	var comparison struct {
		Quotations []models.Quotation `json:"quotations"`
	}
	if status := e.call(pm, "GET", "/rfqs/"+rfq.Number+"/quotations", nil, &comparison); status != http.StatusOK {
		t.Fatalf("compare status = %d", status)
	}
	if len(comparison.Quotations) != 2 {
		t.Fatalf("candidates = %d", len(comparison.Quotations))
	}
	if status := e.call(pm, "POST", "/rfqs/"+rfq.Number+"/select", map[string]any{
		"quotation_id": quoteB.ID,
	}, nil); status != http.StatusOK {
		t.Fatalf("select status = %d", status)
	}

	// Selecting again conflicts.
	if status := e.call(pm, "POST", "/rfqs/"+rfq.Number+"/select", map[string]any{
		"quotation_id": quoteA.ID,
	}, nil); status != http.StatusConflict {
		t.Fatalf("re-select status = %d", status)
	}

	// Convert, accept, invoice, pay.
	var order models.Order
	if status := e.call(pm, "POST", "/rfqs/"+rfq.Number+"/convert", nil, &order); status != http.StatusCreated {
		t.Fatalf("convert status = %d", status)
	}
	if status := e.call(pm, "POST", "/rfqs/"+rfq.Number+"/convert", nil, nil); status != http.StatusConflict {
		t.Fatalf("second convert status = %d", status)
	}
	if status := e.call(beta, "POST", "/orders/"+order.OrderNumber+"/accept", nil, nil); status != http.StatusOK {
		t.Fatalf("accept status = %d", status)
	}

	var invoice models.Invoice
	if status := e.call(beta, "POST", "/invoices", map[string]any{
		"order_number": order.OrderNumber,
		"items":        []map[string]any{{"description": "Paint", "quantity": 1, "unit_price": 800}},
	}, &invoice); status != http.StatusCreated {
		t.Fatalf("invoice status = %d", status)
	}
	if status := e.call(pm, "POST", "/invoices/"+invoice.InvoiceNumber+"/pay", nil, nil); status != http.StatusOK {
		t.Fatalf("pay status = %d", status)
	}

	// Winner notified, loser notified, PM has an audit trail.
	var notes []models.Notification
	if status := e.call(beta, "GET", "/notifications", nil, &notes); status != http.StatusOK {
		t.Fatalf("notifications status = %d", status)
	}
	if len(notes) == 0 {
		t.Fatal("winner received no notifications")
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	e := setupE2E(t)
	resp, err := http.Get(e.srv.URL + "/rfqs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestExternalContextRead(t *testing.T) {
	e := setupE2E(t)
	rfq := models.RFQ{Number: "PMRFQ-0001", OwnerPMID: 1, Title: "Roof repair", Status: models.RFQStatusReceived}
	if err := e.conn.Create(&rfq).Error; err != nil {
		t.Fatal(err)
	}
	token := models.ExternalSubmissionToken{
		PublicID:   "ctx-read-1",
		Token:      "aaaabbbbccccddddeeeeffff0000111122223333444455556666777788889999",
		Type:       models.TokenTypeRFQQuote,
		BoundEmail: "roofer@outside.example",
		RFQID:      &rfq.ID,
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	}
	if err := e.conn.Create(&token).Error; err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(e.srv.URL + "/external/context?token=" + token.Token)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Type  models.TokenType `json:"type"`
		Email string           `json:"email"`
		RFQ   *models.RFQ      `json:"rfq"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Type != models.TokenTypeRFQQuote || body.Email != "roofer@outside.example" {
		t.Fatalf("body = %+v", body)
	}
	if body.RFQ == nil || body.RFQ.Number != rfq.Number {
		t.Fatalf("rfq = %+v", body.RFQ)
	}

	// The read is repeatable; the token is still live afterwards.
	var fresh models.ExternalSubmissionToken
	e.conn.First(&fresh, token.ID)
	if fresh.UsedAt != nil {
		t.Fatal("context read consumed the token")
	}
}

func TestExternalSurfaceHidesTokenState(t *testing.T) {
	e := setupE2E(t)
	payload := bytes.NewBufferString(`{"token":"no-such-token","items":[{"description":"x","quantity":1,"unit_price":1}]}`)
	resp, err := http.Post(e.srv.URL+"/external/rfq/quote", "application/json", payload)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "link_invalid_or_expired" {
		t.Fatalf("error = %s", body.Error)
	}
}
