package mailbox_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/jmehdipour/qmail/internal/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() mailbox.Record {
	return mailbox.Record{
		LockerKey:    "AB12-CD34",
		SerialNumber: "NB3",
		FirstName:    "Jane",
		LastName:     "Doe",
		Description:  "QMail Inbox",
		InboxFee:     "1",
		Class:        "kilo",
	}
}

func TestMarshal_FieldOrderAndCRLF(t *testing.T) {
	raw, err := mailbox.Marshal(sampleRecord())
	require.NoError(t, err)

	want := "LockerKey=AB12-CD34\r\nSerialNumber=NB3\r\nFirstName=Jane\r\nLastName=Doe\r\n" +
		"Description=QMail Inbox\r\nInboxFee=1\r\nClass=kilo"
	assert.Equal(t, want, string(raw))
}

func TestEncodeToken_KnownValue(t *testing.T) {
	token, err := mailbox.EncodeToken(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t,
		"TG9ja2VyS2V5PUFCMTItQ0QzNA0KU2VyaWFsTnVtYmVyPU5CMw0KRmlyc3ROYW1lPUphbmUNCkxhc3ROYW1lPURvZQ0KRGVzY3JpcHRpb249UU1haWwgSW5ib3gNCkluYm94RmVlPTENCkNsYXNzPWtpbG8",
		token)
}

func TestEncodeToken_URLSafeNoPadding(t *testing.T) {
	r := sampleRecord()
	r.Description = "~~~???~~"

	token, err := mailbox.EncodeToken(r)
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	raw, _ := mailbox.Marshal(r)
	std := base64.StdEncoding.EncodeToString(raw)
	require.True(t, strings.ContainsAny(std, "+/"), "fixture should exercise the substitution")
	expected := strings.TrimRight(strings.NewReplacer("+", "-", "/", "_").Replace(std), "=")
	assert.Equal(t, expected, token)
}

func TestToken_RoundTrip(t *testing.T) {
	records := []mailbox.Record{
		sampleRecord(),
		{
			LockerKey: "DY6-UYDM", SerialNumber: "A", FirstName: "A", LastName: "B",
			Description: "x", InboxFee: "0.5", Class: "bit",
		},
		{
			LockerKey: "ZZ99-QQ88", SerialNumber: "R999999999999", FirstName: "Mary Ann",
			LastName: "O'Neil-Smith", Description: "Premium, yearly", InboxFee: "100", Class: "giga",
		},
	}

	for _, r := range records {
		token, err := mailbox.EncodeToken(r)
		require.NoError(t, err)

		got, err := mailbox.DecodeToken(token)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestDecodeToken_ToleratesPadding(t *testing.T) {
	token, err := mailbox.EncodeToken(sampleRecord())
	require.NoError(t, err)

	got, err := mailbox.DecodeToken(token + "=")
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), got)
}

func TestMarshal_RejectsUnsafeValues(t *testing.T) {
	for _, bad := range []string{"Jane\r\nClass=giga", "a=b", "line\nbreak"} {
		r := sampleRecord()
		r.FirstName = bad
		_, err := mailbox.Marshal(r)
		assert.ErrorIs(t, err, mailbox.ErrInvalidField, "value %q", bad)
	}

	r := sampleRecord()
	r.Class = ""
	_, err := mailbox.Marshal(r)
	assert.ErrorIs(t, err, mailbox.ErrEmptyField)
}

func TestDecodeToken_Malformed(t *testing.T) {
	cases := map[string]string{
		"not base64":   "***",
		"missing keys": base64.RawURLEncoding.EncodeToString([]byte("LockerKey=X")),
		"wrong order": base64.RawURLEncoding.EncodeToString([]byte(
			"SerialNumber=A\r\nLockerKey=X\r\nFirstName=a\r\nLastName=b\r\nDescription=c\r\nInboxFee=d\r\nClass=bit")),
		"empty value": base64.RawURLEncoding.EncodeToString([]byte(
			"LockerKey=\r\nSerialNumber=A\r\nFirstName=a\r\nLastName=b\r\nDescription=c\r\nInboxFee=d\r\nClass=bit")),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := mailbox.DecodeToken(token)
			assert.ErrorIs(t, err, mailbox.ErrMalformed)
		})
	}
}
