package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"legal suffix inc", "Acme, Inc.", "acme"},
		{"legal suffix llc", "Acme LLC", "acme"},
		{"legal suffix corp", "ACME CORP", "acme"},
		{"legal suffix co", "Acme Co.", "acme"},
		{"legal suffix ltd", "Acme Ltd", "acme"},
		{"accents folded", "Café Brûlée Inc", "cafe brulee"},
		{"punctuation stripped", "O'Brien & Sons, Inc.", "o brien & sons"},
		{"ampersand kept", "Johnson & Johnson", "johnson & johnson"},
		{"hyphen kept", "Smith-Jones LLC", "smith-jones"},
		{"whitespace collapsed", "  Acme    Widgets  ", "acme widgets"},
		{"empty", "", ""},
		{"stacked suffixes", "Best Buy Co., Inc.", "best buy"},
		{"suffix chain stops before empty", "Co Co Company", "co"},
		{"suffix-only name survives", "Inc", "inc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompanyName(tt.in))
		})
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", "acme.com", "acme.com"},
		{"https prefix", "https://acme.com", "acme.com"},
		{"http prefix", "http://acme.com", "acme.com"},
		{"www stripped", "https://www.acme.com", "acme.com"},
		{"path stripped", "https://acme.com/about?ref=x", "acme.com"},
		{"port stripped", "acme.com:8080", "acme.com"},
		{"subdomain kept", "careers.acme.com", "careers.acme.com"},
		{"uppercase", "HTTPS://WWW.ACME.COM", "acme.com"},
		{"no dot rejected", "localhost", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.in))
		})
	}
}

func TestPersonName(t *testing.T) {
	assert.Equal(t, "jane doe", PersonName("Jane", "Doe"))
	assert.Equal(t, "jane doe", PersonName("  Jane ", " Doe "))
	assert.Equal(t, "jane", PersonName("Jane", ""))
	assert.Equal(t, "doe", PersonName("", "Doe"))
	assert.Equal(t, "jose garcia", PersonName("José", "García"))
	assert.Equal(t, "", PersonName("", ""))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "jane q doe", FullName("Jane  Q  Doe"))
	assert.Equal(t, "renee dubois", FullName("Renée DuBois"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "15551234567", Phone("+1 (555) 123-4567"))
	assert.Equal(t, "5551234567", Phone("555.123.4567"))
	assert.Equal(t, "", Phone("no digits here"))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "jane@acme.com", Email("  Jane@Acme.COM "))
	assert.Equal(t, "", Email("  "))
}

func TestAddressKey(t *testing.T) {
	key := AddressKey("123 Main St", "Springfield", "IL", "62701")
	assert.Equal(t, "123 main st|springfield|il|62701", key)

	// Trimming and case do not change the key.
	assert.Equal(t, key, AddressKey(" 123 Main St ", " SPRINGFIELD ", "il", " 62701 "))

	// Empty components still produce the four-part shape.
	assert.Equal(t, "|||", AddressKey("", "", "", ""))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"acme", "widget", "works"}, Tokens("acme widget works"))
	assert.Equal(t, []string{"acme"}, Tokens("acme acme acme"))
	assert.Empty(t, Tokens(""))
}

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "Cafe Resume", FoldAccents("Café Résumé"))
	assert.Equal(t, "plain", FoldAccents("plain"))
}
