package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account is a Salesforce Account record.
type Account struct {
	ID                string `json:"Id" salesforce:"Id"`
	Name              string `json:"Name" salesforce:"Name"`
	Website           string `json:"Website" salesforce:"Website"`
	Industry          string `json:"Industry" salesforce:"Industry"`
	Description       string `json:"Description" salesforce:"Description"`
	BillingCity       string `json:"BillingCity" salesforce:"BillingCity"`
	BillingState      string `json:"BillingState" salesforce:"BillingState"`
	BillingCountry    string `json:"BillingCountry" salesforce:"BillingCountry"`
	NumberOfEmployees int    `json:"NumberOfEmployees" salesforce:"NumberOfEmployees"`
	YearStarted       string `json:"YearStarted" salesforce:"YearStarted"`
}

// Location formats the billing address as "City, State, Country", skipping
// empty parts.
func (a Account) Location() string {
	var parts []string
	for _, p := range []string{a.BillingCity, a.BillingState, a.BillingCountry} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Contact is a Salesforce Contact record.
type Contact struct {
	ID          string `json:"Id" salesforce:"Id"`
	Name        string `json:"Name" salesforce:"Name"`
	Title       string `json:"Title" salesforce:"Title"`
	LinkedInURL string `json:"LinkedIn_URL__c" salesforce:"LinkedIn_URL__c"`
}

var accountFields = []string{
	"Id", "Name", "Website", "Industry", "Description",
	"BillingCity", "BillingState", "BillingCountry",
	"NumberOfEmployees", "YearStarted",
}

var contactFields = []string{"Id", "Name", "Title", "LinkedIn_URL__c"}

// FindAccountByName returns the first Account whose name matches exactly, or
// nil when none exists.
func FindAccountByName(ctx context.Context, c Client, name string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Name = '%s' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(name),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrapf(err, "sf: find account by name %s", name)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// ListLeadership returns the account's contacts that hold a title, most
// senior titles first as ordered by Salesforce.
func ListLeadership(ctx context.Context, c Client, accountID string, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 10
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Contact WHERE AccountId = '%s' AND Title != null ORDER BY Title LIMIT %d",
		strings.Join(contactFields, ", "),
		escapeSoql(accountID),
		limit,
	)

	var contacts []Contact
	if err := c.Query(ctx, soql, &contacts); err != nil {
		return nil, eris.Wrapf(err, "sf: list contacts for %s", accountID)
	}
	return contacts, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
