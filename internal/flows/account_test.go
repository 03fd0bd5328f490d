package flows

import (
	"context"
	"errors"
	"strings"
	"testing"
)

var (
	errValidation = errors.New("validation")
	errTaken      = errors.New("email taken")
	errMismatch   = errors.New("current password mismatch")
	errDuplicate  = errors.New("duplicate")
)

func accountDeps(users map[string]AccountUserRecord) AccountDeps {
	return AccountDeps{
		IsNotFound:     func(err error) bool { return errors.Is(err, errNotFound) },
		IsDuplicate:    func(err error) bool { return errors.Is(err, errDuplicate) },
		HashPassword:   func(p string) (string, error) { return "hash:" + p, nil },
		VerifyPassword: func(p, h string) (bool, error) { return "hash:"+p == h, nil },
		NormalizeEmail: func(s string) string { return strings.ToLower(strings.TrimSpace(s)) },
		CreateUser: func(_ context.Context, email, hash string) (AccountUserRecord, error) {
			for _, u := range users {
				if u.Email == email {
					return AccountUserRecord{}, errDuplicate
				}
			}
			rec := AccountUserRecord{UserID: "u" + email, Email: email, PasswordHash: hash}
			users[rec.UserID] = rec
			return rec, nil
		},
		GetUserByID: func(_ context.Context, id string) (AccountUserRecord, error) {
			u, ok := users[id]
			if !ok {
				return AccountUserRecord{}, errNotFound
			}
			return u, nil
		},
		SaveAccount: func(_ context.Context, rec AccountUserRecord) error {
			for id, u := range users {
				if id != rec.UserID && u.Email == rec.Email {
					return errDuplicate
				}
			}
			users[rec.UserID] = rec
			return nil
		},
		IssueSession: func(uid, _ string) (string, error) { return "session-" + uid, nil },
		Errors: AccountErrors{
			EngineNotReady:          errNotReady,
			Validation:              errValidation,
			EmailTaken:              errTaken,
			UserNotFound:            errNotFound,
			CurrentPasswordMismatch: errMismatch,
			Internal:                errInternal,
		},
	}
}

func TestCreateAccountVerificationFailureDoesNotFail(t *testing.T) {
	deps := accountDeps(map[string]AccountUserRecord{})
	var warned warnings
	deps.Warn = warned.warn
	deps.IssueVerification = func(context.Context, string, string) error { return errors.New("token store down") }

	res, err := RunCreateAccount(context.Background(), AccountCreateRequest{Email: "A@x.io", Password: "pw"}, deps)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.User.Email != "a@x.io" || res.SessionToken == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(warned) != 1 {
		t.Fatalf("expected the verification failure to be logged, got %v", warned)
	}
}

func TestCreateAccountSessionFailureIsInternal(t *testing.T) {
	deps := accountDeps(map[string]AccountUserRecord{})
	deps.IssueSession = func(string, string) (string, error) { return "", errors.New("no key") }

	_, err := RunCreateAccount(context.Background(), AccountCreateRequest{Email: "a@x.io", Password: "pw"}, deps)
	if !errors.Is(err, errInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestUpdateAccountSingleSave(t *testing.T) {
	users := map[string]AccountUserRecord{"u1": {UserID: "u1", Email: "a@x.io", PasswordHash: "hash:old"}}
	deps := accountDeps(users)
	saves := 0
	save := deps.SaveAccount
	deps.SaveAccount = func(ctx context.Context, rec AccountUserRecord) error {
		saves++
		return save(ctx, rec)
	}

	rec, err := RunUpdateAccount(context.Background(), "u1", AccountUpdateRequest{
		CurrentPassword: "old",
		NewPassword:     "new",
		Email:           "B@x.io",
	}, deps)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if saves != 1 {
		t.Fatalf("expected one save, got %d", saves)
	}
	if rec.Email != "b@x.io" || rec.PasswordHash != "hash:new" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestUpdateAccountRejectsBeforeSaving(t *testing.T) {
	users := map[string]AccountUserRecord{
		"u1": {UserID: "u1", Email: "a@x.io", PasswordHash: "hash:old"},
		"u2": {UserID: "u2", Email: "b@x.io", PasswordHash: "hash:other"},
	}
	deps := accountDeps(users)

	tests := []struct {
		name string
		req  AccountUpdateRequest
		want error
	}{
		{"password without current", AccountUpdateRequest{NewPassword: "new"}, errMismatch},
		{"wrong current", AccountUpdateRequest{CurrentPassword: "bad", NewPassword: "new", Email: "c@x.io"}, errMismatch},
		{"blank email", AccountUpdateRequest{Email: "   "}, errValidation},
		{"taken email", AccountUpdateRequest{Email: "b@x.io"}, errTaken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RunUpdateAccount(context.Background(), "u1", tc.req, deps)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if users["u1"].Email != "a@x.io" || users["u1"].PasswordHash != "hash:old" {
				t.Fatalf("rejected update must not change the user: %+v", users["u1"])
			}
		})
	}
}
