// Package installer ties the reconciliation engine, policy compiler and
// lifecycle controller together behind the host-framework installer
// capability set: prepare, deploy, enhance, save, restart, more-info.
//
// The installer owns cross-cutting bookkeeping the engine deliberately
// does not: executable verification, configuration root resolution,
// version gating, the configuration directory lock, and the checkpoint
// journal that receives change notes at save time.
package installer
