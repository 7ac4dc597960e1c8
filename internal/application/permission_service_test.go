package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-coordinator/internal/persistence"
)

func testPermissionService(users *userRepoStub, permissions *permissionRepoStub, requests *requestRepoStub, notifier *notifierStub, now func() time.Time) *PermissionService {
	return NewPermissionService(permissions, requests, users, notifier, 7*24*time.Hour, 30*24*time.Hour, sequentialIDs("perm"), now, nil)
}

func TestPermissionService_GrantToDomain_RejectsPersonalProviders(t *testing.T) {
	t.Parallel()

	permissions := &permissionRepoStub{}
	svc := testPermissionService(newUserRepoStub(), permissions, &requestRepoStub{}, &notifierStub{}, nil)

	_, err := svc.GrantToDomain(context.Background(), Principal{UserID: "grantor", Email: "grantor@acme.example"}, "gmail.com")
	if !errors.Is(err, ErrPersonalDomain) {
		t.Fatalf("expected ErrPersonalDomain, got %v", err)
	}
	if len(permissions.permissions) != 0 {
		t.Fatal("no permission row may be created for a rejected domain")
	}
}

func TestPermissionService_GrantToDomain_ValidatesShape(t *testing.T) {
	t.Parallel()

	svc := testPermissionService(newUserRepoStub(), &permissionRepoStub{}, &requestRepoStub{}, &notifierStub{}, nil)
	principal := Principal{UserID: "grantor", Email: "grantor@acme.example"}

	for _, domain := range []string{"", "user@acme.example", "nodots"} {
		_, err := svc.GrantToDomain(context.Background(), principal, domain)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("domain %q: expected ValidationError, got %v", domain, err)
		}
	}
}

func TestPermissionService_GrantToDomain_CreatesDurableGrant(t *testing.T) {
	t.Parallel()

	permissions := &permissionRepoStub{}
	svc := testPermissionService(newUserRepoStub(), permissions, &requestRepoStub{}, &notifierStub{}, nil)

	granted, err := svc.GrantToDomain(context.Background(), Principal{UserID: "grantor", Email: "grantor@acme.example"}, "Widgets.Example")
	if err != nil {
		t.Fatalf("GrantToDomain failed: %v", err)
	}
	if granted.Type != persistence.PermissionTypeDomain || granted.GranteeDomain != "widgets.example" {
		t.Fatalf("unexpected grant: %#v", granted)
	}
	if granted.ExpiresAt != nil {
		t.Fatal("domain grants must not expire")
	}
}

func TestPermissionService_GrantToUser(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(
		persistence.User{ID: "grantor", Email: "grantor@acme.example"},
		persistence.User{ID: "grantee", Email: "grantee@widgets.example"},
	)
	permissions := &permissionRepoStub{}
	notifier := &notifierStub{}
	svc := testPermissionService(users, permissions, &requestRepoStub{}, notifier, nil)
	principal := Principal{UserID: "grantor", Email: "grantor@acme.example"}

	granted, err := svc.GrantToUser(context.Background(), principal, "grantee@widgets.example")
	if err != nil {
		t.Fatalf("GrantToUser failed: %v", err)
	}
	if granted.Type != persistence.PermissionTypeUser || granted.GranteeID != "grantee" {
		t.Fatalf("unexpected grant: %#v", granted)
	}

	if len(notifier.notified) != 1 || notifier.notified[0].userID != "grantee" || notifier.notified[0].kind != NotificationPermissionGranted {
		t.Fatalf("expected one granted notification, got %v", notifier.notified)
	}

	// A second identical grant is refused.
	if _, err := svc.GrantToUser(context.Background(), principal, "grantee@widgets.example"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPermissionService_GrantToUser_SelfAndMissing(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(persistence.User{ID: "grantor", Email: "grantor@acme.example"})
	svc := testPermissionService(users, &permissionRepoStub{}, &requestRepoStub{}, &notifierStub{}, nil)
	principal := Principal{UserID: "grantor", Email: "grantor@acme.example"}

	if _, err := svc.GrantToUser(context.Background(), principal, "grantor@acme.example"); !errors.Is(err, ErrSelfGrant) {
		t.Fatalf("expected ErrSelfGrant, got %v", err)
	}
	if _, err := svc.GrantToUser(context.Background(), principal, "nobody@acme.example"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPermissionService_HasPermission(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(
		persistence.User{ID: "owner", Email: "owner@acme.example"},
		persistence.User{ID: "requester", Email: "requester@widgets.example"},
	)
	permissions := &permissionRepoStub{}
	svc := testPermissionService(users, permissions, &requestRepoStub{}, &notifierStub{}, nil)

	// Owners always read their own calendar.
	has, err := svc.HasPermission(context.Background(), "owner", "owner")
	if err != nil || !has {
		t.Fatalf("expected self-permission true, got %v %v", has, err)
	}

	has, err = svc.HasPermission(context.Background(), "owner", "requester")
	if err != nil || has {
		t.Fatalf("expected no permission, got %v %v", has, err)
	}

	// A domain grant covering the requester's email domain suffices.
	domain := "widgets.example"
	permissions.permissions = append(permissions.permissions, persistence.CalendarPermission{
		ID:            "perm-1",
		GrantorID:     "owner",
		GranteeDomain: &domain,
		Type:          persistence.PermissionTypeDomain,
		Status:        persistence.PermissionStatusActive,
	})
	has, err = svc.HasPermission(context.Background(), "owner", "requester")
	if err != nil || !has {
		t.Fatalf("expected domain grant to authorize, got %v %v", has, err)
	}
}

func TestPermissionService_OnceGrantExpires(t *testing.T) {
	t.Parallel()

	grantedAt := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	current := grantedAt
	now := func() time.Time { return current }

	users := newUserRepoStub(
		persistence.User{ID: "owner", Email: "owner@acme.example"},
		persistence.User{ID: "requester", Email: "requester@widgets.example"},
	)
	permissions := &permissionRepoStub{}
	requests := &requestRepoStub{}
	svc := testPermissionService(users, permissions, requests, &notifierStub{}, now)

	recipientID := "owner"
	requests.requests = append(requests.requests, persistence.PermissionRequest{
		ID:          "req-1",
		RequesterID: "requester",
		RecipientID: &recipientID,
		Status:      persistence.RequestStatusPending,
		ExpiresAt:   grantedAt.Add(7 * 24 * time.Hour),
		CreatedAt:   grantedAt.Add(-time.Hour),
	})

	granted, err := svc.ApproveRequest(context.Background(), Principal{UserID: "owner", Email: "owner@acme.example"}, "req-1")
	if err != nil {
		t.Fatalf("ApproveRequest failed: %v", err)
	}
	if granted.Type != persistence.PermissionTypeOnce {
		t.Fatalf("expected once grant, got %s", granted.Type)
	}
	if granted.ExpiresAt == nil || !granted.ExpiresAt.Equal(grantedAt.Add(7*24*time.Hour)) {
		t.Fatalf("expected 7 day expiry, got %v", granted.ExpiresAt)
	}

	// Right after approval the requester is authorized.
	has, err := svc.HasPermission(context.Background(), "owner", "requester")
	if err != nil || !has {
		t.Fatalf("expected permission right after approval, got %v %v", has, err)
	}

	// Eight days later the once grant has lapsed.
	current = grantedAt.Add(8 * 24 * time.Hour)
	has, err = svc.HasPermission(context.Background(), "owner", "requester")
	if err != nil || has {
		t.Fatalf("expected permission to expire after 8 days, got %v %v", has, err)
	}
}

func TestPermissionService_CreateRequest_RegisteredRecipient(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(
		persistence.User{ID: "requester", Email: "requester@acme.example"},
		persistence.User{ID: "recipient", Email: "recipient@widgets.example"},
	)
	requests := &requestRepoStub{}
	notifier := &notifierStub{}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := testPermissionService(users, &permissionRepoStub{}, requests, notifier, fixedNow(now))
	principal := Principal{UserID: "requester", Email: "requester@acme.example"}

	request, err := svc.CreateRequest(context.Background(), principal, CreateRequestParams{
		RecipientEmail: "recipient@widgets.example",
		MeetingContext: "Planning",
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if request.RecipientID != "recipient" || request.RecipientEmail != "" {
		t.Fatalf("expected user-addressed request, got %#v", request)
	}
	if !request.ExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expected 7 day expiry for user-addressed request, got %v", request.ExpiresAt)
	}
	if len(notifier.notified) != 1 || notifier.notified[0].kind != NotificationPermissionRequest {
		t.Fatalf("expected a request notification, got %v", notifier.notified)
	}

	// A duplicate pending request is refused.
	if _, err := svc.CreateRequest(context.Background(), principal, CreateRequestParams{RecipientEmail: "recipient@widgets.example"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPermissionService_CreateRequest_UnregisteredEmail(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(persistence.User{ID: "requester", Email: "requester@acme.example"})
	requests := &requestRepoStub{}
	notifier := &notifierStub{}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := testPermissionService(users, &permissionRepoStub{}, requests, notifier, fixedNow(now))

	request, err := svc.CreateRequest(context.Background(), Principal{UserID: "requester", Email: "requester@acme.example"}, CreateRequestParams{
		RecipientEmail: "future@widgets.example",
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if request.RecipientEmail != "future@widgets.example" || request.RecipientID != "" {
		t.Fatalf("expected email-addressed request, got %#v", request)
	}
	if !request.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expected 30 day expiry for email request, got %v", request.ExpiresAt)
	}
	// Nobody to notify yet.
	if len(notifier.notified) != 0 {
		t.Fatalf("expected no notification, got %v", notifier.notified)
	}
}

func TestPermissionService_ApproveRequest_Authorization(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(
		persistence.User{ID: "requester", Email: "requester@acme.example"},
		persistence.User{ID: "recipient", Email: "recipient@widgets.example"},
	)
	requests := &requestRepoStub{}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := testPermissionService(users, &permissionRepoStub{}, requests, &notifierStub{}, fixedNow(now))

	recipientID := "recipient"
	requests.requests = append(requests.requests, persistence.PermissionRequest{
		ID:          "req-1",
		RequesterID: "requester",
		RecipientID: &recipientID,
		Status:      persistence.RequestStatusPending,
		ExpiresAt:   now.Add(24 * time.Hour),
	})

	if _, err := svc.ApproveRequest(context.Background(), Principal{UserID: "requester", Email: "requester@acme.example"}, "req-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-recipient, got %v", err)
	}
	if _, err := svc.ApproveRequest(context.Background(), Principal{UserID: "recipient"}, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPermissionService_ExpiredRequestIsClosedLazily(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(persistence.User{ID: "recipient", Email: "recipient@widgets.example"})
	requests := &requestRepoStub{}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := testPermissionService(users, &permissionRepoStub{}, requests, &notifierStub{}, fixedNow(now))

	recipientID := "recipient"
	requests.requests = append(requests.requests, persistence.PermissionRequest{
		ID:          "req-stale",
		RequesterID: "requester",
		RecipientID: &recipientID,
		Status:      persistence.RequestStatusPending,
		ExpiresAt:   now.Add(-time.Hour),
	})

	_, err := svc.ApproveRequest(context.Background(), Principal{UserID: "recipient"}, "req-stale")
	if !errors.Is(err, ErrRequestClosed) {
		t.Fatalf("expected ErrRequestClosed, got %v", err)
	}
	if requests.requests[0].Status != persistence.RequestStatusExpired {
		t.Fatalf("expected lazy expiry transition, got %s", requests.requests[0].Status)
	}

	// Expired requests also vanish from the pending listing.
	pending, err := svc.ListPendingRequests(context.Background(), Principal{UserID: "recipient"})
	if err != nil {
		t.Fatalf("ListPendingRequests failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests, got %v", pending)
	}
}

func TestPermissionService_DenyRequest(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(persistence.User{ID: "recipient", Email: "recipient@widgets.example"})
	requests := &requestRepoStub{}
	permissions := &permissionRepoStub{}
	notifier := &notifierStub{}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := testPermissionService(users, permissions, requests, notifier, fixedNow(now))

	recipientID := "recipient"
	requests.requests = append(requests.requests, persistence.PermissionRequest{
		ID:          "req-1",
		RequesterID: "requester",
		RecipientID: &recipientID,
		Status:      persistence.RequestStatusPending,
		ExpiresAt:   now.Add(24 * time.Hour),
	})

	if err := svc.DenyRequest(context.Background(), Principal{UserID: "recipient", Email: "recipient@widgets.example"}, "req-1"); err != nil {
		t.Fatalf("DenyRequest failed: %v", err)
	}
	if requests.requests[0].Status != persistence.RequestStatusDenied {
		t.Fatalf("expected denied status, got %s", requests.requests[0].Status)
	}
	if len(permissions.permissions) != 0 {
		t.Fatal("deny must not create a grant")
	}
	if len(notifier.notified) != 1 || notifier.notified[0].kind != NotificationPermissionDenied {
		t.Fatalf("expected denial notification, got %v", notifier.notified)
	}
}

func TestPermissionService_ResolvePendingOnSignup(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(persistence.User{ID: "requester", Email: "requester@acme.example"})
	requests := &requestRepoStub{}
	notifier := &notifierStub{}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := testPermissionService(users, &permissionRepoStub{}, requests, notifier, fixedNow(now))

	email := "newcomer@widgets.example"
	requests.requests = append(requests.requests, persistence.PermissionRequest{
		ID:             "req-1",
		RequesterID:    "requester",
		RecipientEmail: &email,
		Status:         persistence.RequestStatusPending,
		ExpiresAt:      now.Add(24 * time.Hour),
	})

	if err := svc.ResolvePendingOnSignup(context.Background(), "newcomer", "newcomer@widgets.example"); err != nil {
		t.Fatalf("ResolvePendingOnSignup failed: %v", err)
	}

	if requests.requests[0].RecipientID == nil || *requests.requests[0].RecipientID != "newcomer" {
		t.Fatalf("request not rebound: %#v", requests.requests[0])
	}
	if requests.requests[0].RecipientEmail != nil {
		t.Fatal("recipient email should be cleared on rebind")
	}
	// Exactly one notification per rebound request.
	if len(notifier.notified) != 1 || notifier.notified[0].userID != "newcomer" {
		t.Fatalf("expected one notification to the new user, got %v", notifier.notified)
	}
}

func TestPermissionService_Revoke(t *testing.T) {
	t.Parallel()

	permissions := &permissionRepoStub{}
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	svc := testPermissionService(newUserRepoStub(), permissions, &requestRepoStub{}, &notifierStub{}, fixedNow(now))

	granteeID := "grantee"
	permissions.permissions = append(permissions.permissions, persistence.CalendarPermission{
		ID:        "perm-1",
		GrantorID: "grantor",
		GranteeID: &granteeID,
		Type:      persistence.PermissionTypeUser,
		Status:    persistence.PermissionStatusActive,
	})

	// Only the grantor may revoke.
	if err := svc.Revoke(context.Background(), Principal{UserID: "grantee"}, "perm-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-grantor, got %v", err)
	}
	if err := svc.Revoke(context.Background(), Principal{UserID: "grantor"}, "perm-1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if permissions.permissions[0].Status != persistence.PermissionStatusRevoked {
		t.Fatalf("expected revoked status, got %s", permissions.permissions[0].Status)
	}
}

func TestPermissionService_FrequentContacts(t *testing.T) {
	t.Parallel()

	permissions := &permissionRepoStub{
		contacts: []persistence.FrequentContact{
			{Email: "bob@acme.example", DisplayName: "Bob", LastInteraction: time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)},
			{Email: "carol@acme.example", DisplayName: "Carol", LastInteraction: time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)},
		},
	}
	svc := testPermissionService(newUserRepoStub(), permissions, &requestRepoStub{}, &notifierStub{}, nil)

	contacts, err := svc.FrequentContacts(context.Background(), Principal{UserID: "alice", Email: "alice@acme.example"})
	if err != nil {
		t.Fatalf("FrequentContacts failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(contacts))
	}
	if contacts[0].Email != "bob@acme.example" || contacts[0].DisplayName != "Bob" {
		t.Fatalf("unexpected first contact: %+v", contacts[0])
	}
	if contacts[1].Email != "carol@acme.example" {
		t.Fatalf("unexpected second contact: %+v", contacts[1])
	}
}
