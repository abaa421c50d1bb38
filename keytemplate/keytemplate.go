// Package keytemplate renders the filename input of an upload. Templates use Go's text/template syntax over the
// build context, for example `report-{{ .Branch }}-{{ .BuildNumber }}.csv`.
package keytemplate

import (
	"bytes"
	"fmt"
	"runtime"
	"text/template"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

const timestampLayout = "20060102T150405Z"

type Model struct {
	envRepo env.Repository
	logger  log.Logger
	os      string
	arch    string
	now     func() time.Time
}

type templateInventory struct {
	OS          string
	Arch        string
	Workflow    string
	Branch      string
	CommitHash  string
	BuildNumber string
	Timestamp   string
}

func NewModel(envRepo env.Repository, logger log.Logger) Model {
	return Model{
		envRepo: envRepo,
		logger:  logger,
		os:      runtime.GOOS,
		arch:    runtime.GOARCH,
		now:     time.Now,
	}
}

// Evaluate returns the final string from a filename template and the build context found in the environment
func (m Model) Evaluate(key string) (string, error) {
	funcMap := template.FuncMap{
		"getenv":   m.getEnvVar,
		"checksum": m.checksum,
	}

	tmpl, err := template.New("").Funcs(funcMap).Parse(key)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	inventory := templateInventory{
		OS:          m.os,
		Arch:        m.arch,
		Workflow:    m.envRepo.Get("BITRISE_TRIGGERED_WORKFLOW_ID"),
		Branch:      m.envRepo.Get("BITRISE_GIT_BRANCH"),
		CommitHash:  m.commitHash(),
		BuildNumber: m.envRepo.Get("BITRISE_BUILD_NUMBER"),
		Timestamp:   m.now().UTC().Format(timestampLayout),
	}
	m.validateInventory(inventory)

	resultBuffer := bytes.Buffer{}
	if err := tmpl.Execute(&resultBuffer, inventory); err != nil {
		return "", err
	}
	return resultBuffer.String(), nil
}

func (m Model) commitHash() string {
	if hash := m.envRepo.Get("BITRISE_GIT_COMMIT"); hash != "" {
		return hash
	}
	return m.envRepo.Get("GIT_CLONE_COMMIT_HASH")
}

func (m Model) getEnvVar(key string) string {
	return m.envRepo.Get(key)
}

func (m Model) validateInventory(inventory templateInventory) {
	m.warnIfEmpty("Workflow", inventory.Workflow)
	m.warnIfEmpty("Branch", inventory.Branch)
	m.warnIfEmpty("CommitHash", inventory.CommitHash)
	m.warnIfEmpty("BuildNumber", inventory.BuildNumber)
}

func (m Model) warnIfEmpty(name, value string) {
	if value == "" {
		m.logger.Debugf("Template variable .%s is not defined", name)
	}
}
