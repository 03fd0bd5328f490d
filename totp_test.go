package goCreds

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"

	"github.com/xlzd/gotp"
)

const rfcSecretBase32 = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTPVerifyRFCVectorsSHA1(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer: "goCreds",
		Digits: 8,
		Period: 30,
		Skew:   0,
	})
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		if !m.VerifyCode(rfcSecretBase32, tc.code, time.Unix(tc.ts, 0)) {
			t.Fatalf("SHA1 vector failed at t=%d", tc.ts)
		}
	}
}

func TestTOTPDriftWindowAcceptsAdjacentStep(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "goCreds", Digits: 6, Period: 30, Skew: 1})
	now := time.Unix(1234567890, 0)
	prev := gotp.NewTOTP(rfcSecretBase32, 6, 30, nil).At(int(now.Unix() - 30))
	next := gotp.NewTOTP(rfcSecretBase32, 6, 30, nil).At(int(now.Unix() + 30))

	if !m.VerifyCode(rfcSecretBase32, prev, now) {
		t.Fatal("expected previous step to be accepted")
	}
	if !m.VerifyCode(rfcSecretBase32, next, now) {
		t.Fatal("expected next step to be accepted")
	}
}

func TestTOTPDriftWindowRejectsDistantStep(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "goCreds", Digits: 6, Period: 30, Skew: 1})
	now := time.Unix(1234567890, 0)
	old := gotp.NewTOTP(rfcSecretBase32, 6, 30, nil).At(int(now.Unix() - 90))
	current := gotp.NewTOTP(rfcSecretBase32, 6, 30, nil).At(int(now.Unix()))
	if old == current {
		t.Skip("codes collide for chosen timestamps")
	}

	if m.VerifyCode(rfcSecretBase32, old, now) {
		t.Fatal("expected code three steps old to be rejected")
	}
}

func TestTOTPWrongDigitsRejected(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "goCreds", Digits: 6, Period: 30, Skew: 1})
	if m.VerifyCode(rfcSecretBase32, "12345678", time.Now()) {
		t.Fatal("expected wrong-length code to be rejected")
	}
	if m.VerifyCode(rfcSecretBase32, "12a456", time.Now()) {
		t.Fatal("expected non-numeric code to be rejected")
	}
	if m.VerifyCode(rfcSecretBase32, "", time.Now()) {
		t.Fatal("expected empty code to be rejected")
	}
}

func TestTOTPMalformedSecretRejectedWithoutPanic(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "goCreds", Digits: 6, Period: 30, Skew: 1})
	for _, secret := range []string{"", "not base32!", "11111111"} {
		if m.VerifyCode(secret, "123456", time.Now()) {
			t.Fatalf("expected secret %q to be rejected", secret)
		}
	}
}

func TestTOTPGenerateSecretRoundTrip(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "goCreds", Digits: 6, Period: 30, Skew: 1})
	secret, uri, err := m.GenerateSecret("alice@example.com")
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if len(secret) != 32 {
		t.Fatalf("expected 32-char secret, got %d", len(secret))
	}
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil || len(raw) != totpSecretBytes {
		t.Fatalf("expected %d decoded bytes, got %d (err %v)", totpSecretBytes, len(raw), err)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning uri: %s", uri)
	}
	if !strings.Contains(uri, "secret="+secret) || !strings.Contains(uri, "issuer=goCreds") {
		t.Fatalf("provisioning uri missing secret or issuer: %s", uri)
	}

	now := time.Now()
	code := gotp.NewTOTP(secret, 6, 30, nil).At(int(now.Unix()))
	if !m.VerifyCode(secret, code, now) {
		t.Fatal("expected generated secret to verify its own code")
	}
}
