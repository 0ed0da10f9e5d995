// Package resolver orchestrates the tiered company-identity resolution of a
// batch: static overrides, the persistent mapping cache, passthrough of
// existing identifiers, a budget-gated external lookup, and deterministic
// fallback IDs, in strict priority order with first success winning.
package resolver

import "github.com/rotisserie/eris"

// Strategy binds a resolution run to the input batch's column layout and
// fixes the per-run behavior toggles. Immutable once the run starts.
type Strategy struct {
	PlanCodeColumn     string `mapstructure:"plan_code_column"`
	CustomerNameColumn string `mapstructure:"customer_name_column"`
	AccountNameColumn  string `mapstructure:"account_name_column"`
	AccountNumColumn   string `mapstructure:"account_num_column"`
	ExistingIDColumn   string `mapstructure:"existing_id_column"`
	OutputColumn       string `mapstructure:"output_column"`

	UseLookupService  bool `mapstructure:"use_lookup_service"`
	LookupBudget      int  `mapstructure:"lookup_budget"`
	EnableFallbackIDs bool `mapstructure:"enable_fallback_ids"`
	EnableBackflow    bool `mapstructure:"enable_backflow"`
	EnableAsyncQueue  bool `mapstructure:"enable_async_queue"`
}

// Validate rejects strategies that cannot drive a run. Only the name source
// and the output target are mandatory; every other binding is optional.
func (s Strategy) Validate() error {
	if s.CustomerNameColumn == "" && s.AccountNameColumn == "" {
		return eris.New("strategy: need customer_name_column or account_name_column")
	}
	if s.OutputColumn == "" {
		return eris.New("strategy: output_column is required")
	}
	return nil
}

// rawName picks the name source for a row: the customer-name column when
// populated, the account-name column otherwise.
func (s Strategy) rawName(row map[string]string) string {
	if s.CustomerNameColumn != "" {
		if v := row[s.CustomerNameColumn]; v != "" {
			return v
		}
	}
	if s.AccountNameColumn != "" {
		return row[s.AccountNameColumn]
	}
	return ""
}
