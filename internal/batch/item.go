package batch

import (
	"fmt"
	"path/filepath"

	"github.com/blackwell-systems/wpbatch/internal/backup"
	"github.com/blackwell-systems/wpbatch/internal/config"
	"github.com/blackwell-systems/wpbatch/internal/wp"
)

// ItemProcessor applies one install/update operation to one plugin item.
// Updates are wrapped in a backup-before-mutate protocol; failed new
// installs get their partial artifacts removed since there is nothing to
// restore.
type ItemProcessor struct {
	installer wp.Installer
	activator wp.Activator
	backups   *backup.Store
	cfg       *config.Config
}

// NewItemProcessor creates an ItemProcessor with its collaborators injected.
func NewItemProcessor(installer wp.Installer, activator wp.Activator, backups *backup.Store, cfg *config.Config) *ItemProcessor {
	return &ItemProcessor{
		installer: installer,
		activator: activator,
		backups:   backups,
		cfg:       cfg,
	}
}

// Process applies one item and returns its result. Dry-run reports intended
// outcomes without touching the filesystem. Failures never panic or abort;
// they are captured in the result so the batch can continue.
func (p *ItemProcessor) Process(item *PackageItem, dryRun bool) ProcessResult {
	res := ProcessResult{
		Slug:        item.Slug,
		Action:      item.Action,
		Name:        item.Name,
		FromVersion: item.InstalledVersion,
		ToVersion:   item.TargetVersion,
		Descriptor:  item.Descriptor,
		DryRun:      dryRun,
	}

	// Incompatible items are rejected before any mutation, in both modes.
	if len(item.CompatibilityIssues) > 0 {
		res.Status = StatusIncompatible
		res.Messages = append(res.Messages, item.CompatibilityIssues...)
		return res
	}

	if dryRun {
		return p.simulate(item, res)
	}

	switch item.Action {
	case ActionUpdate:
		return p.update(item, res)
	default:
		return p.install(item, res)
	}
}

// simulate reports what a real run would do.
func (p *ItemProcessor) simulate(item *PackageItem, res ProcessResult) ProcessResult {
	res.Status = StatusSuccess

	if item.Action == ActionUpdate {
		res.Messages = append(res.Messages,
			fmt.Sprintf("Would update %s from %s to %s", item.Slug, item.InstalledVersion, item.TargetVersion))
	} else {
		res.Messages = append(res.Messages,
			fmt.Sprintf("Would install %s %s", item.Slug, item.TargetVersion))
	}

	if item.ShouldActivate(p.cfg.AutoActivate) {
		res.Messages = append(res.Messages, fmt.Sprintf("Would activate %s", item.Slug))
	}

	return res
}

// update backs up the installed directory, applies the staged version, and
// restores the backup when the installer fails and auto-rollback is on.
func (p *ItemProcessor) update(item *PackageItem, res ProcessResult) ProcessResult {
	installDir := p.installDir(item)

	backupPath, err := p.backups.CreateBackup(installDir)
	if err != nil {
		res.Status = StatusFailed
		res.Messages = append(res.Messages, fmt.Sprintf("backup failed: %v", err))
		return res
	}

	if err := p.installer.Update(item.SourcePath, item.Descriptor); err != nil {
		res.Status = StatusFailed
		res.Messages = append(res.Messages, fmt.Sprintf("update failed: %v", err))

		if !p.cfg.AutoRollback {
			res.BackupPath = backupPath
			res.Messages = append(res.Messages,
				fmt.Sprintf("auto-rollback disabled; backup retained at %s", backupPath))
			return res
		}

		if rerr := p.backups.RestoreBackup(backupPath, installDir); rerr != nil {
			// Plugin directory is left in the failed intermediate state.
			res.BackupPath = backupPath
			res.Messages = append(res.Messages,
				fmt.Sprintf("FATAL: rollback failed, %s left in inconsistent state: %v", item.Slug, rerr))
			return res
		}

		res.RolledBack = true
		p.backups.CleanupBackup(backupPath)
		res.Messages = append(res.Messages,
			fmt.Sprintf("restored previous version %s from backup", item.InstalledVersion))
		return res
	}

	res.Status = StatusSuccess
	res.Messages = append(res.Messages,
		fmt.Sprintf("updated %s from %s to %s", item.Slug, item.InstalledVersion, item.TargetVersion))
	p.activate(item, &res)

	// The backup backs the batch-level undo; it is only discarded here when
	// the batch will never be rollback-eligible.
	if p.cfg.AutoRollback {
		res.BackupPath = backupPath
	} else {
		p.backups.CleanupBackup(backupPath)
	}

	return res
}

// install applies a new plugin. There is no previous version to protect, so
// a failure only needs its partial artifacts removed.
func (p *ItemProcessor) install(item *PackageItem, res ProcessResult) ProcessResult {
	if err := p.installer.Install(item.SourcePath, item.Descriptor); err != nil {
		p.backups.RemovePartialInstall(p.installDir(item))
		res.Status = StatusFailed
		res.Messages = append(res.Messages, fmt.Sprintf("install failed: %v", err))
		return res
	}

	res.Status = StatusSuccess
	res.Messages = append(res.Messages,
		fmt.Sprintf("installed %s %s", item.Slug, item.TargetVersion))
	p.activate(item, &res)

	return res
}

// activate runs post-success activation. An update item that is already
// active skips the redundant Activate call but still reports activated.
// Activation failure is downgraded to a warning; the install stands.
func (p *ItemProcessor) activate(item *PackageItem, res *ProcessResult) {
	if !item.ShouldActivate(p.cfg.AutoActivate) {
		return
	}

	if item.Action == ActionUpdate {
		if active, err := p.activator.IsActive(item.Descriptor); err == nil && active {
			res.Activated = true
			return
		}
	}

	if err := p.activator.Activate(item.Descriptor, item.NetworkWide); err != nil {
		res.Messages = append(res.Messages,
			fmt.Sprintf("warning: %s installed but activation failed: %v", item.Slug, err))
		return
	}

	res.Activated = true
	if item.NetworkWide {
		res.Messages = append(res.Messages, fmt.Sprintf("activated %s network-wide", item.Slug))
	} else {
		res.Messages = append(res.Messages, fmt.Sprintf("activated %s", item.Slug))
	}
}

// installDir is the plugin's installed directory under the plugins root.
func (p *ItemProcessor) installDir(item *PackageItem) string {
	return filepath.Join(p.cfg.PluginDir, item.Slug)
}
