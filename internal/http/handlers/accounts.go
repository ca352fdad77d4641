package handlers

import (
	"net/http"
)

// AccountBalance reports the caller's token balance.
func (a *App) AccountBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := a.currentAccountID(r)
	if err != nil {
		a.unauthorized(w)
		return
	}
	if err := a.Ledger.EnsureAccount(r.Context(), accountID, startingBalance); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "account setup failed")
		return
	}
	acct, err := a.Ledger.Balance(r.Context(), accountID)
	if err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("balance query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load balance")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"account_id": acct.ID,
		"balance":    acct.Balance,
		"unlimited":  acct.Unlimited,
	})
}
