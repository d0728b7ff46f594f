package shared

const (
	// Fiber locals keys set by the access gate
	TrialToken   = "trial_token"
	IdentityKind = "identity_kind"
	ClientIP     = "client_ip"

	// Identity kinds
	KindMasterIP    = "master-ip"
	KindMasterToken = "master-token"
	KindTrial       = "trial"
	KindBasicAuth   = "basic-auth"
	KindAnonymous   = "anonymous-blocked"

	// Cookie and header names
	CookieMasterIP          = "is_master_ip"
	CookieBypassMaintenance = "bypass_maintenance"
	HeaderTrialToken        = "X-Trial-Token"
	HeaderMaintenanceGate   = "X-Maintenance-Gate"

	// Query parameters recognised on non-API paths
	QueryTrial = "trial"
	QueryTheme = "theme"
)
