package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"escrow/internal/domain"
	"escrow/internal/token"
)

const (
	admin       domain.Account = "0xad00000000000000000000000000000000000001"
	beneficiary domain.Account = "0xbe00000000000000000000000000000000000002"
	donor1      domain.Account = "0xd100000000000000000000000000000000000003"
	donor2      domain.Account = "0xd200000000000000000000000000000000000004"
	escrowAcct  domain.Account = "0xe500000000000000000000000000000000000005"

	day = 24 * time.Hour
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	engine   *Engine
	token    *token.Memory
	clock    *testClock
	recorder *Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := token.NewMemory(escrowAcct)
	return newFixtureWithToken(t, mem, mem)
}

// newFixtureWithToken wires the engine to tok; mem is the ledger tok moves funds on.
func newFixtureWithToken(t *testing.T, mem *token.Memory, tok domain.Token) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	rec := &Recorder{}
	engine, err := New(Options{
		Admin:     admin,
		Token:     tok,
		Publisher: rec,
		Logger:    zerolog.Nop(),
		Now:       clock.Now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{engine: engine, token: mem, clock: clock, recorder: rec}
}

func (f *fixture) fund(t *testing.T, donor domain.Account, amount uint64) {
	t.Helper()
	ctx := context.Background()
	if err := f.token.Mint(ctx, donor, amount); err != nil {
		t.Fatalf("mint: %v", err)
	}
	allowance, _ := f.token.Allowance(ctx, donor)
	if err := f.token.Approve(ctx, donor, allowance+amount); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func (f *fixture) create(t *testing.T, goal uint64, duration time.Duration) uint64 {
	t.Helper()
	id, err := f.engine.CreateCampaign(context.Background(), CreateCampaignParams{
		Beneficiary: beneficiary,
		GoalAmount:  goal,
		Duration:    duration,
		Title:       "Clean water",
		Description: "Wells for the village",
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	return id
}

func (f *fixture) donate(t *testing.T, id uint64, donor domain.Account, amount uint64) {
	t.Helper()
	f.fund(t, donor, amount)
	if err := f.engine.Donate(context.Background(), id, donor, amount); err != nil {
		t.Fatalf("Donate(%d, %s, %d): %v", id, donor, amount, err)
	}
}

func (f *fixture) balance(t *testing.T, account domain.Account) uint64 {
	t.Helper()
	b, err := f.token.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	return b
}

func (f *fixture) campaign(t *testing.T, id uint64) domain.Campaign {
	t.Helper()
	c, err := f.engine.GetCampaign(id)
	if err != nil {
		t.Fatalf("GetCampaign(%d): %v", id, err)
	}
	return c
}

// assertSumInvariant checks that the per-donor records add up to the campaign total.
func (f *fixture) assertSumInvariant(t *testing.T, id uint64) {
	t.Helper()
	donors, err := f.engine.GetCampaignDonors(id)
	if err != nil {
		t.Fatalf("GetCampaignDonors: %v", err)
	}
	var sum uint64
	for _, d := range donors {
		amount, err := f.engine.GetDonationAmount(id, d)
		if err != nil {
			t.Fatalf("GetDonationAmount: %v", err)
		}
		sum += amount
	}
	if c := f.campaign(t, id); c.TotalRaised != sum {
		t.Fatalf("sum invariant broken: total raised %d, records sum %d", c.TotalRaised, sum)
	}
}

func TestNewRequiresAdminAndToken(t *testing.T) {
	if _, err := New(Options{Token: token.NewMemory(escrowAcct)}); err == nil {
		t.Fatal("expected error without admin")
	}
	if _, err := New(Options{Admin: admin}); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestNewDefaultsFeeConfig(t *testing.T) {
	f := newFixture(t)
	cfg := f.engine.FeeConfig()
	if cfg.FeeBps != domain.DefaultFeeBps {
		t.Fatalf("fee bps = %d, want %d", cfg.FeeBps, domain.DefaultFeeBps)
	}
	if cfg.FeeRecipient != admin {
		t.Fatalf("fee recipient = %s, want %s", cfg.FeeRecipient, admin)
	}
	if f.engine.Admin() != admin {
		t.Fatalf("admin = %s", f.engine.Admin())
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	valid := CreateCampaignParams{Beneficiary: beneficiary, GoalAmount: 10, Duration: day, Title: "t"}
	tests := []struct {
		name   string
		mutate func(p *CreateCampaignParams)
		want   error
	}{
		{"empty beneficiary", func(p *CreateCampaignParams) { p.Beneficiary = "" }, domain.ErrInvalidBeneficiary},
		{"zero address beneficiary", func(p *CreateCampaignParams) { p.Beneficiary = "0x0000000000000000000000000000000000000000" }, domain.ErrInvalidBeneficiary},
		{"zero goal", func(p *CreateCampaignParams) { p.GoalAmount = 0 }, domain.ErrInvalidGoal},
		{"zero duration", func(p *CreateCampaignParams) { p.Duration = 0 }, domain.ErrInvalidDuration},
		{"negative duration", func(p *CreateCampaignParams) { p.Duration = -time.Second }, domain.ErrInvalidDuration},
		{"empty title", func(p *CreateCampaignParams) { p.Title = "" }, domain.ErrEmptyTitle},
		{"blank title", func(p *CreateCampaignParams) { p.Title = " \t\n" }, domain.ErrEmptyTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := valid
			tt.mutate(&p)
			_, err := f.engine.CreateCampaign(context.Background(), p)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if domain.KindOf(err) != domain.KindInvalidInput {
				t.Fatalf("kind = %s, want %s", domain.KindOf(err), domain.KindInvalidInput)
			}
			if ids := f.engine.GetAllCampaignIDs(); len(ids) != 0 {
				t.Fatalf("rejected campaign was stored: %v", ids)
			}
		})
	}
}

func TestCreateCampaignAssignsSequentialIDs(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now()
	for want := uint64(1); want <= 3; want++ {
		if got := f.create(t, 10_000, 30*day); got != want {
			t.Fatalf("id = %d, want %d", got, want)
		}
	}
	ids := f.engine.GetAllCampaignIDs()
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("ids = %v", ids)
	}

	c := f.campaign(t, 2)
	if !c.Deadline.Equal(start.Add(30 * day)) {
		t.Fatalf("deadline = %s, want %s", c.Deadline, start.Add(30*day))
	}
	if c.TotalRaised != 0 || c.Finalized || c.Outcome != domain.OutcomeActive {
		t.Fatalf("fresh campaign state = %+v", c)
	}
	if c.Title != "Clean water" || c.Beneficiary != beneficiary || c.GoalAmount != 10_000 {
		t.Fatalf("stored campaign = %+v", c)
	}
}

func TestCreateCampaignNormalizesTitle(t *testing.T) {
	f := newFixture(t)
	// "e" followed by a combining acute accent composes to a single rune under NFC.
	id, err := f.engine.CreateCampaign(context.Background(), CreateCampaignParams{
		Beneficiary: beneficiary,
		GoalAmount:  1,
		Duration:    day,
		Title:       "  Cafe\u0301 fund  ",
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if got := f.campaign(t, id).Title; got != "Caf\u00e9 fund" {
		t.Fatalf("title = %q", got)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.GetCampaign(42)
	if !errors.Is(err, domain.ErrCampaignNotFound) || domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.engine.GetCampaignDonors(42); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("donors err = %v", err)
	}
	if _, err := f.engine.GetDonationAmount(42, donor1); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("donation err = %v", err)
	}
}

func TestListCampaignsPages(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.create(t, 100, day)
	}
	page := f.engine.ListCampaigns(1, 2)
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Fatalf("page = %+v", page)
	}
	if rest := f.engine.ListCampaigns(3, 0); len(rest) != 2 {
		t.Fatalf("rest = %d campaigns", len(rest))
	}
	if none := f.engine.ListCampaigns(10, 5); len(none) != 0 {
		t.Fatalf("expected empty page, got %d", len(none))
	}
}
