package reconcile

// Security levels for smtpd_tls_security_level / smtp_tls_security_level.
const (
	// SecurityLevelMay enables opportunistic TLS with plaintext fallback.
	SecurityLevelMay = "may"

	// SecurityLevelEncrypt makes TLS mandatory. An existing "encrypt" is
	// never downgraded by this engine.
	SecurityLevelEncrypt = "encrypt"
)

// Parameter names this engine reads and writes. These are Postfix's
// exact main.cf parameter names and are not renamable.
const (
	ParamCertFile           = "smtpd_tls_cert_file"
	ParamKeyFile            = "smtpd_tls_key_file"
	ParamECCertFile         = "smtpd_tls_eccert_file"
	ParamECKeyFile          = "smtpd_tls_eckey_file"
	ParamMandatoryProtocols = "smtpd_tls_mandatory_protocols"
	ParamProtocols          = "smtpd_tls_protocols"
	ParamServerSecurity     = "smtpd_tls_security_level"
	ParamClientSecurity     = "smtp_tls_security_level"
	ParamCiphers            = "smtpd_tls_ciphers"
	ParamMandatoryCiphers   = "smtpd_tls_mandatory_ciphers"
	ParamEECDHGrade         = "smtpd_tls_eecdh_grade"
	ParamLogLevel           = "smtpd_tls_loglevel"
	ParamReceivedHeader     = "smtpd_tls_received_header"
	ParamPolicyMaps         = "smtp_tls_policy_maps"
	ParamCAFile             = "smtp_tls_CAfile"
	ParamConfigDirectory    = "config_directory"
	ParamMailVersion        = "mail_version"
)

// Defaults carries the hardened parameter tables applied during a
// deployment. It is immutable configuration passed into the deploy
// operation rather than ambient package state, so tests can supply
// their own tables.
type Defaults struct {
	// MandatoryProtocols excludes protocols for mandatory TLS sessions.
	MandatoryProtocols string

	// Protocols excludes protocols for opportunistic TLS sessions.
	Protocols string

	// LogLevel is the summary TLS log level.
	LogLevel string

	// ReceivedHeader controls recording TLS details in Received headers.
	ReceivedHeader string

	// ServerSecurity constrains smtpd_tls_security_level. The engine
	// applies this through ProposeOpportunisticTLS so mandatory TLS is
	// never weakened.
	ServerSecurity string

	// ClientSecurity constrains smtp_tls_security_level.
	ClientSecurity MultiValueConstraint

	// Ciphers constrains the opportunistic cipher grade.
	Ciphers MultiValueConstraint

	// MandatoryCiphers constrains the mandatory cipher grade.
	MandatoryCiphers MultiValueConstraint

	// EECDHGrade constrains the ephemeral key exchange grade.
	EECDHGrade MultiValueConstraint
}

// Hardened returns the default hardening table: SSLv2/SSLv3 excluded
// everywhere, medium-or-better ciphers, strong-or-better key exchange,
// opportunistic TLS unless mandatory TLS is already configured.
func Hardened() Defaults {
	return Defaults{
		MandatoryProtocols: "!SSLv2, !SSLv3",
		Protocols:          "!SSLv2, !SSLv3",
		LogLevel:           "1",
		ReceivedHeader:     "yes",
		ServerSecurity:     SecurityLevelMay,
		ClientSecurity: MultiValueConstraint{
			Param:      ParamClientSecurity,
			Acceptable: []string{SecurityLevelMay, SecurityLevelEncrypt, "dane", "dane-only", "fingerprint", "verify", "secure"},
		},
		Ciphers: MultiValueConstraint{
			Param:      ParamCiphers,
			Acceptable: []string{"medium", "high"},
		},
		MandatoryCiphers: MultiValueConstraint{
			Param:      ParamMandatoryCiphers,
			Acceptable: []string{"medium", "high"},
		},
		EECDHGrade: MultiValueConstraint{
			Param:      ParamEECDHGrade,
			Acceptable: []string{"strong", "ultra"},
		},
	}
}
