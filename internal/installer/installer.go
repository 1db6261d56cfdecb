package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/posttls/internal/checkpoint"
	"github.com/roach88/posttls/internal/lifecycle"
	"github.com/roach88/posttls/internal/policy"
	"github.com/roach88/posttls/internal/postconf"
	"github.com/roach88/posttls/internal/reconcile"
)

// Key types a deployed certificate may use. The key type selects which
// parameter table receives the cert and key paths.
const (
	KeyTypeRSA   = "rsa"
	KeyTypeECDSA = "ecdsa"
)

// Deployment carries the certificate material for one protected domain.
type Deployment struct {
	Domain        string
	CertPath      string
	KeyPath       string
	ChainPath     string
	FullchainPath string

	// KeyType is the certificate's key algorithm. Empty means RSA.
	KeyType string
}

// Installer is the host-framework capability set for configuring an
// agent, re-expressed as a plain interface. The reconciliation engine
// has no dependency on it and is testable standalone.
type Installer interface {
	Prepare() error
	Deploy(d Deployment) error
	Enhance(domain, enhancement string) error
	Save(title string, temporary bool) error
	Restart() error
	MoreInfo() string
}

// PostfixInstaller configures TLS for the Postfix MTA: installed
// certificates, hardened protocols and ciphers, and a compiled
// per-domain TLS policy table.
type PostfixInstaller struct {
	cfg      Config
	runner   postconf.Runner
	defaults reconcile.Defaults
	lookPath func(string) error
	policies *policy.List

	// Populated by Prepare.
	configDir  string
	store      *postconf.Client
	engine     *reconcile.Engine
	controller *lifecycle.Controller
	journal    *checkpoint.Journal
	lock       *DirLock
	version    lifecycle.Version

	// Free-form notes recorded alongside the engine's per-change notes
	// at save time.
	deployNotes []string
}

var _ Installer = (*PostfixInstaller)(nil)

// Option configures a PostfixInstaller.
type Option func(*PostfixInstaller)

// WithRunner replaces the subprocess runner for every external tool.
func WithRunner(r postconf.Runner) Option {
	return func(i *PostfixInstaller) {
		i.runner = r
	}
}

// WithDefaults replaces the hardened parameter tables.
func WithDefaults(d reconcile.Defaults) Option {
	return func(i *PostfixInstaller) {
		i.defaults = d
	}
}

// WithPolicyList supplies an already-loaded TLS policy document,
// bypassing the PolicyFile setting.
func WithPolicyList(l *policy.List) Option {
	return func(i *PostfixInstaller) {
		i.policies = l
	}
}

// WithLookPath replaces executable discovery. Tests use this together
// with WithRunner to avoid touching the host system.
func WithLookPath(fn func(string) error) Option {
	return func(i *PostfixInstaller) {
		i.lookPath = fn
	}
}

// New creates a PostfixInstaller. Call Prepare before any other
// operation.
func New(cfg Config, opts ...Option) *PostfixInstaller {
	i := &PostfixInstaller{
		cfg:      cfg.WithDefaults(),
		runner:   postconf.ExecRunner{Timeout: cfg.Timeout},
		defaults: reconcile.Hardened(),
		lookPath: postconf.VerifyExecutable,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Prepare finishes initialization: verifies the external tools exist,
// resolves the configuration root, validates the existing
// configuration, acquires the directory lock, and gates on the agent
// version. No later operation may run without it.
func (i *PostfixInstaller) Prepare() error {
	for _, exe := range []string{i.cfg.Ctl, i.cfg.ConfigUtility} {
		if err := i.lookPath(exe); err != nil {
			return err
		}
	}

	if err := i.resolveConfigDir(); err != nil {
		return err
	}

	i.store = postconf.New(i.cfg.ConfigUtility,
		postconf.WithRunner(i.runner),
		postconf.WithConfigRoot(i.configRootFlag()),
	)
	i.engine = reconcile.New(i.store)
	i.controller = lifecycle.NewController(i.cfg.Ctl,
		lifecycle.WithRunner(i.runner),
		lifecycle.WithConfigRoot(i.configRootFlag()),
	)

	if err := i.controller.CheckConfig(); err != nil {
		return err
	}

	lock, err := AcquireDirLock(i.configDir)
	if err != nil {
		return err
	}
	i.lock = lock

	version, err := lifecycle.ProbeVersion(i.store)
	if err != nil {
		i.releaseLock()
		return err
	}
	if err := lifecycle.EnsureSupported(version); err != nil {
		i.releaseLock()
		return err
	}
	i.version = version

	journalPath := i.cfg.JournalPath
	if journalPath == "" {
		journalPath = filepath.Join(i.configDir, DefaultJournalName)
	}
	journal, err := checkpoint.Open(journalPath)
	if err != nil {
		i.releaseLock()
		return err
	}
	i.journal = journal

	if i.policies == nil && i.cfg.PolicyFile != "" {
		list, err := policy.Load(i.cfg.PolicyFile)
		if err != nil {
			i.releaseLock()
			return err
		}
		i.policies = list
	}

	slog.Info("installer prepared",
		"config_dir", i.configDir,
		"version", i.version.String(),
	)
	return nil
}

// Deploy proposes the full TLS configuration for one domain: cert and
// key paths, hardened protocol and cipher settings, the trust anchor,
// and the compiled policy table. Nothing is written until Save.
func (i *PostfixInstaller) Deploy(d Deployment) error {
	certParam, keyParam, err := keyParams(d.KeyType)
	if err != nil {
		return err
	}

	i.deployNotes = append(i.deployNotes, fmt.Sprintf("Configuring TLS for %s", d.Domain))

	// The full chain serves the certificate parameter so clients
	// receive the intermediates.
	if err := i.engine.Propose(certParam, d.FullchainPath); err != nil {
		return err
	}
	if err := i.engine.Propose(keyParam, d.KeyPath); err != nil {
		return err
	}

	fixed := []struct{ param, value string }{
		{reconcile.ParamMandatoryProtocols, i.defaults.MandatoryProtocols},
		{reconcile.ParamProtocols, i.defaults.Protocols},
		{reconcile.ParamLogLevel, i.defaults.LogLevel},
		{reconcile.ParamReceivedHeader, i.defaults.ReceivedHeader},
	}
	for _, p := range fixed {
		if err := i.engine.Propose(p.param, p.value); err != nil {
			return err
		}
	}

	constraints := []reconcile.MultiValueConstraint{
		i.defaults.Ciphers,
		i.defaults.MandatoryCiphers,
		i.defaults.EECDHGrade,
		i.defaults.ClientSecurity,
	}
	for _, c := range constraints {
		if err := i.engine.ProposeConstrained(c); err != nil {
			return err
		}
	}

	if err := i.engine.ProposeOpportunisticTLS(
		reconcile.ParamServerSecurity, i.defaults.ServerSecurity); err != nil {
		return err
	}

	if d.ChainPath != "" {
		if err := i.engine.Propose(reconcile.ParamCAFile, d.ChainPath); err != nil {
			return err
		}
	}

	if i.policies != nil {
		if err := i.deployPolicyTable(); err != nil {
			return err
		}
	}
	return nil
}

// keyParams selects the cert/key parameter pair for a key type.
func keyParams(keyType string) (certParam, keyParam string, err error) {
	switch keyType {
	case "", KeyTypeRSA:
		return reconcile.ParamCertFile, reconcile.ParamKeyFile, nil
	case KeyTypeECDSA:
		return reconcile.ParamECCertFile, reconcile.ParamECKeyFile, nil
	default:
		return "", "", fmt.Errorf("unsupported key type: %s", keyType)
	}
}

// deployPolicyTable compiles the policy document, writes the table
// next to main.cf, indexes it with postmap, and points
// smtp_tls_policy_maps at it.
func (i *PostfixInstaller) deployPolicyTable() error {
	tablePath := i.cfg.PolicyTable
	if tablePath == "" {
		tablePath = filepath.Join(i.configDir, DefaultPolicyTableName)
	}

	result := policy.Compile(i.policies)
	if err := policy.WriteTable(tablePath, result); err != nil {
		return err
	}

	reference := "hash:" + tablePath
	args := []string{reference}
	if root := i.configRootFlag(); root != "" {
		args = append([]string{"-c", root}, args...)
	}
	if err := i.runner.Run("postmap", args...); err != nil {
		return &policy.WriteError{Path: tablePath, Err: fmt.Errorf("postmap failed: %w", err)}
	}

	return i.engine.Propose(reconcile.ParamPolicyMaps, reference)
}

// Enhance rejects every enhancement; none are supported.
func (i *PostfixInstaller) Enhance(domain, enhancement string) error {
	return fmt.Errorf("unsupported enhancement: %s", enhancement)
}

// Save commits every proposed change in one flush and journals the
// change notes. With nothing proposed it is a no-op. A failed commit
// leaves the proposals intact for retry.
func (i *PostfixInstaller) Save(title string, temporary bool) error {
	if i.engine.Pending() == 0 {
		i.deployNotes = nil
		return nil
	}

	notes := append(append([]string(nil), i.deployNotes...), i.engine.Notes()...)

	if _, err := i.engine.Commit(); err != nil {
		return err
	}

	if _, err := i.journal.Record(context.Background(), title, temporary, notes); err != nil {
		// The configuration is already committed; a journal failure
		// must not report the deployment as failed.
		slog.Error("checkpoint journal write failed",
			"title", title,
			"error", err,
		)
	}
	i.deployNotes = nil
	return nil
}

// Restart reloads a running agent or starts a stopped one.
func (i *PostfixInstaller) Restart() error {
	return i.controller.Restart()
}

// MoreInfo describes what this installer does and where it operates.
func (i *PostfixInstaller) MoreInfo() string {
	return fmt.Sprintf(
		"Configures Postfix to use installed certificates, disable weak "+
			"ciphers and protocols, and enforce per-domain TLS policies.\n"+
			"Server root: %s\nVersion: %s",
		i.configDir, i.version,
	)
}

// GetAllNames returns the domain names Postfix is configured to
// identify as, for certificate name selection. Values that are unset
// or contain unexpanded $ references are dropped.
func (i *PostfixInstaller) GetAllNames() ([]string, error) {
	seen := make(map[string]bool)
	for _, param := range []string{"mydomain", "myhostname", "myorigin"} {
		value, ok, err := i.engine.Read(param)
		if err != nil {
			return nil, err
		}
		if !ok || strings.Contains(value, "$") {
			continue
		}
		seen[value] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Version returns the agent version discovered during Prepare.
func (i *PostfixInstaller) Version() lifecycle.Version {
	return i.version
}

// ConfigDir returns the resolved configuration root.
func (i *PostfixInstaller) ConfigDir() string {
	return i.configDir
}

// Engine exposes the reconciliation engine for inspection.
func (i *PostfixInstaller) Engine() *reconcile.Engine {
	return i.engine
}

// Journal exposes the checkpoint journal.
func (i *PostfixInstaller) Journal() *checkpoint.Journal {
	return i.journal
}

// Controller exposes the lifecycle controller.
func (i *PostfixInstaller) Controller() *lifecycle.Controller {
	return i.controller
}

// Close releases the directory lock and the journal.
func (i *PostfixInstaller) Close() error {
	var firstErr error
	if i.journal != nil {
		if err := i.journal.Close(); err != nil {
			firstErr = err
		}
		i.journal = nil
	}
	i.releaseLock()
	return firstErr
}

// resolveConfigDir fixes the configuration root: an explicit setting
// wins, otherwise the agent's own config_directory parameter decides.
func (i *PostfixInstaller) resolveConfigDir() error {
	if i.cfg.ConfigDir != "" {
		if _, err := os.Stat(i.cfg.ConfigDir); err != nil {
			return fmt.Errorf("config directory %s: %w", i.cfg.ConfigDir, err)
		}
		i.configDir = i.cfg.ConfigDir
		return nil
	}

	bootstrap := postconf.New(i.cfg.ConfigUtility, postconf.WithRunner(i.runner))
	value, ok, err := bootstrap.Get(reconcile.ParamConfigDirectory)
	if err != nil {
		return err
	}
	if !ok {
		return postconf.NewQueryError(reconcile.ParamConfigDirectory,
			"config_directory is unset", nil)
	}
	i.configDir = value
	return nil
}

// configRootFlag returns the root passed with -c, which is only done
// when the caller picked a directory explicitly. With no explicit
// root, the tools' own default configuration applies: the same main.cf
// either way, resolved by the same postconf.
func (i *PostfixInstaller) configRootFlag() string {
	return i.cfg.ConfigDir
}

func (i *PostfixInstaller) releaseLock() {
	if i.lock != nil {
		i.lock.Close()
		i.lock = nil
	}
}
