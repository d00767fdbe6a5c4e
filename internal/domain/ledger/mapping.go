package ledger

import (
	"fmt"
	"strings"
)

// AccountRole names a well-known account the poster needs to resolve
type AccountRole string

const (
	RoleCash               AccountRole = "cash"
	RoleBank               AccountRole = "bank"
	RoleInventory          AccountRole = "inventory"
	RoleAccountsReceivable AccountRole = "accounts_receivable"
	RoleAccountsPayable    AccountRole = "accounts_payable"
	RoleSalesRevenue       AccountRole = "sales_revenue"
	RoleCOGS               AccountRole = "cogs"
)

// AllRoles returns every role in chart order
func AllRoles() []AccountRole {
	return []AccountRole{
		RoleCash,
		RoleBank,
		RoleInventory,
		RoleAccountsReceivable,
		RoleAccountsPayable,
		RoleSalesRevenue,
		RoleCOGS,
	}
}

// RoleDefinition describes how a role's account is created when seeding a chart
type RoleDefinition struct {
	Name string
	Type AccountType
}

var roleDefinitions = map[AccountRole]RoleDefinition{
	RoleCash:               {Name: "Cash", Type: AccountTypeAsset},
	RoleBank:               {Name: "Bank", Type: AccountTypeAsset},
	RoleInventory:          {Name: "Inventory", Type: AccountTypeAsset},
	RoleAccountsReceivable: {Name: "Accounts Receivable", Type: AccountTypeAsset},
	RoleAccountsPayable:    {Name: "Accounts Payable", Type: AccountTypeLiability},
	RoleSalesRevenue:       {Name: "Sales Revenue", Type: AccountTypeIncome},
	RoleCOGS:               {Name: "Cost of Goods Sold", Type: AccountTypeExpense},
}

// DefinitionFor returns the seeding definition for a role
func DefinitionFor(role AccountRole) (RoleDefinition, bool) {
	d, ok := roleDefinitions[role]
	return d, ok
}

// AccountMapping maps each role to the account code used by a tenant
type AccountMapping map[AccountRole]string

// DefaultAccountMapping returns the conventional chart codes
func DefaultAccountMapping() AccountMapping {
	return AccountMapping{
		RoleCash:               "1000",
		RoleBank:               "1100",
		RoleInventory:          "1200",
		RoleAccountsReceivable: "1300",
		RoleAccountsPayable:    "2000",
		RoleSalesRevenue:       "4000",
		RoleCOGS:               "5000",
	}
}

// Code returns the code configured for role
func (m AccountMapping) Code(role AccountRole) (string, bool) {
	code, ok := m[role]
	if !ok || strings.TrimSpace(code) == "" {
		return "", false
	}
	return code, true
}

// Validate checks every role has a distinct, non-empty code
func (m AccountMapping) Validate() error {
	seen := make(map[string]AccountRole, len(m))
	for _, role := range AllRoles() {
		code, ok := m.Code(role)
		if !ok {
			return fmt.Errorf("account mapping: no code for role %s", role)
		}
		if other, dup := seen[code]; dup {
			return fmt.Errorf("account mapping: code %s used by both %s and %s", code, other, role)
		}
		seen[code] = role
	}
	return nil
}

// Merge returns a copy of m with the non-empty entries of overrides applied
func (m AccountMapping) Merge(overrides map[string]string) AccountMapping {
	out := make(AccountMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) != "" {
			out[AccountRole(k)] = strings.TrimSpace(v)
		}
	}
	return out
}
