// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package enforcer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-shellwords"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/revert"
)

// Default tool names, resolved through $PATH.
const (
	defaultIPSetPath     = "ipset"
	defaultIPTablesPath  = "iptables"
	defaultIP6TablesPath = "ip6tables"
)

// waitArgs makes iptables wait for the xtables lock instead of failing.
var waitArgs = []string{"-w"}

// maxCommentLen is the longest value the iptables comment match accepts.
const maxCommentLen = 255

// ruleComment returns the iptables comment that tags ruleName. Names
// that do not fit are cut and suffixed with a digest of the full name,
// so distinct long names still map to distinct comments.
func ruleComment(ruleName string) string {
	if len(ruleName) <= maxCommentLen {
		return ruleName
	}
	sum := sha256.Sum256([]byte(ruleName))
	digest := hex.EncodeToString(sum[:8])
	return ruleName[:maxCommentLen-len(digest)-1] + "#" + digest
}

// IPSet is a Linux [Gateway] backed by kernel ip sets and
// iptables/ip6tables rules.
//
// Each identifier maps to two sets, "<id>-4" (family inet) and
// "<id>-6" (family inet6), so that one logical address set can carry
// both address families. Rules are inserted at the top of the OUTPUT
// (outbound) or INPUT (inbound) chain and tagged with an iptables
// comment holding the rule name.
type IPSet struct {
	exec          executable
	ipsetPath     string
	iptablesPath  string
	ip6tablesPath string
	prefix        string
	logger        *log.Logger
}

var _ Gateway = (*IPSet)(nil)

// IPSetOption configures an [IPSet] gateway.
type IPSetOption func(*IPSet)

// WithBinaries overrides the ipset, iptables and ip6tables executables.
// Empty values keep the default.
func WithBinaries(ipset, iptables, ip6tables string) IPSetOption {
	return func(g *IPSet) {
		if ipset != "" {
			g.ipsetPath = ipset
		}
		if iptables != "" {
			g.iptablesPath = iptables
		}
		if ip6tables != "" {
			g.ip6tablesPath = ip6tables
		}
	}
}

// WithSetPrefix sets the prefix of generated identifiers.
// The default is [DefaultPrefix].
func WithSetPrefix(prefix string) IPSetOption {
	return func(g *IPSet) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

// WithLogger sets the logger. Passing nil is a no-op.
func WithLogger(logger *log.Logger) IPSetOption {
	return func(g *IPSet) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewIPSet returns an ipset/iptables gateway. Call [IPSet.Init] before use.
func NewIPSet(opts ...IPSetOption) *IPSet {
	g := &IPSet{
		exec:          osExecutable,
		ipsetPath:     defaultIPSetPath,
		iptablesPath:  defaultIPTablesPath,
		ip6tablesPath: defaultIP6TablesPath,
		prefix:        DefaultPrefix,
		logger:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Init verifies that the prefix is usable and that ipset, iptables and
// ip6tables can be executed.
func (g *IPSet) Init(ctx context.Context) error {
	if err := ValidatePrefix(g.prefix); err != nil {
		return err
	}

	checks := []struct {
		prog string
		args []string
	}{
		{g.ipsetPath, []string{"version"}},
		{g.iptablesPath, []string{"--version"}},
		{g.ip6tablesPath, []string{"--version"}},
	}
	for _, c := range checks {
		out, err := g.exec.exec(ctx, c.prog, "", c.args...)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, commandError(c.prog, c.args, err))
		}
		g.logger.Debug("packet filter tool available", "prog", c.prog, "version", strings.TrimSpace(string(out)))
	}
	return nil
}

func setName(id, family string) string { return id + "-" + family }

func (g *IPSet) run(ctx context.Context, prog, stdin string, args ...string) ([]byte, error) {
	g.logger.Debug("exec", "prog", prog, "args", strings.Join(args, " "))
	out, err := g.exec.exec(ctx, prog, stdin, args...)
	if err != nil {
		return nil, commandError(prog, args, err)
	}
	return out, nil
}

// restore feeds script to "ipset restore".
func (g *IPSet) restore(ctx context.Context, script string) error {
	_, err := g.run(ctx, g.ipsetPath, script, "restore")
	if err != nil && strings.Contains(err.Error(), "does not exist") {
		return fmt.Errorf("%w: %v", ErrSetNotFound, err)
	}
	return err
}

// CreateAddressSet implements [Gateway].
func (g *IPSet) CreateAddressSet(ctx context.Context, name string, ips []string) (string, error) {
	v4, v6, err := splitFamilies(ips)
	if err != nil {
		return "", err
	}

	id := NewID(g.prefix)

	var b strings.Builder
	fmt.Fprintf(&b, "create %s hash:ip family inet\n", setName(id, "4"))
	for _, ip := range v4 {
		fmt.Fprintf(&b, "add %s %s\n", setName(id, "4"), ip)
	}
	fmt.Fprintf(&b, "create %s hash:ip family inet6\n", setName(id, "6"))
	for _, ip := range v6 {
		fmt.Fprintf(&b, "add %s %s\n", setName(id, "6"), ip)
	}

	if err := g.restore(ctx, b.String()); err != nil {
		// restore stops at the failing line; drop whatever was created.
		_, _ = g.run(ctx, g.ipsetPath, "", "destroy", setName(id, "4"))
		_, _ = g.run(ctx, g.ipsetPath, "", "destroy", setName(id, "6"))
		return "", err
	}

	g.logger.Info("address set created", "name", name, "id", id, "ipv4", len(v4), "ipv6", len(v6))
	return id, nil
}

// UpdateAddressSet implements [Gateway]. Each family is rebuilt in a
// temporary set and swapped in, so the kernel never matches against a
// partially filled set.
func (g *IPSet) UpdateAddressSet(ctx context.Context, id string, ips []string) error {
	v4, v6, err := splitFamilies(ips)
	if err != nil {
		return err
	}

	for _, family := range []string{"4", "6"} {
		if _, err := g.run(ctx, g.ipsetPath, "", "list", "-n", setName(id, family)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSetNotFound, id, err)
		}
	}

	var b strings.Builder
	for _, f := range []struct {
		family, inet string
		ips          []string
	}{
		{"4", "inet", v4},
		{"6", "inet6", v6},
	} {
		live := setName(id, f.family)
		tmp := live + "t"
		fmt.Fprintf(&b, "create %s hash:ip family %s -exist\n", tmp, f.inet)
		fmt.Fprintf(&b, "flush %s\n", tmp)
		for _, ip := range f.ips {
			fmt.Fprintf(&b, "add %s %s\n", tmp, ip)
		}
		fmt.Fprintf(&b, "swap %s %s\n", tmp, live)
		fmt.Fprintf(&b, "destroy %s\n", tmp)
	}

	if err := g.restore(ctx, b.String()); err != nil {
		return err
	}

	g.logger.Debug("address set updated", "id", id, "ipv4", len(v4), "ipv6", len(v6))
	return nil
}

// DeleteAddressSet implements [Gateway].
func (g *IPSet) DeleteAddressSet(ctx context.Context, id string) error {
	var errs []error
	missing := 0
	for _, family := range []string{"4", "6"} {
		if _, err := g.run(ctx, g.ipsetPath, "", "destroy", setName(id, family)); err != nil {
			if strings.Contains(err.Error(), "does not exist") {
				missing++
				continue
			}
			errs = append(errs, err)
		}
	}
	if missing == 2 {
		return fmt.Errorf("%w: %s", ErrSetNotFound, id)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	g.logger.Info("address set deleted", "id", id)
	return nil
}

func chainFor(dir Direction) (chain, match string) {
	if dir == Inbound {
		return "INPUT", "src"
	}
	return "OUTPUT", "dst"
}

func targetFor(action Action) string {
	if action == Allow {
		return "ACCEPT"
	}
	return "DROP"
}

// CreateRule implements [Gateway]. One rule is installed per address
// family; if the second insert fails the first is removed again.
func (g *IPSet) CreateRule(ctx context.Context, ruleName, id string, dir Direction, action Action) error {
	existing, err := g.findRules(ctx, ruleName)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrRuleExists, ruleName)
	}

	chain, match := chainFor(dir)
	var undo revert.Stack

	for _, f := range []struct{ prog, family string }{
		{g.iptablesPath, "4"},
		{g.ip6tablesPath, "6"},
	} {
		ruleArgs := []string{
			chain,
			"-m", "set", "--match-set", setName(id, f.family), match,
			"-m", "comment", "--comment", ruleComment(ruleName),
			"-j", targetFor(action),
		}
		insert := append(append(append([]string{}, waitArgs...), "-I"), ruleArgs...)
		if _, err := g.run(ctx, f.prog, "", insert...); err != nil {
			if rerr := undo.Revert(); rerr != nil {
				g.logger.Warn("failed to roll back partial rule", "rule", ruleName, "err", rerr)
			}
			if strings.Contains(err.Error(), "Set "+setName(id, f.family)+" doesn't exist") {
				return fmt.Errorf("%w: %s: %v", ErrSetNotFound, id, err)
			}
			return err
		}

		prog := f.prog
		del := append(append(append([]string{}, waitArgs...), "-D"), ruleArgs...)
		undo.Push(prog+" "+chain, func() error {
			_, err := g.run(context.WithoutCancel(ctx), prog, "", del...)
			return err
		})
	}

	g.logger.Info("rule created", "rule", ruleName, "id", id, "direction", dir, "action", action)
	return nil
}

// installedRule is one iptables rule carrying a managed comment.
type installedRule struct {
	prog string
	args []string // rule as printed by -S, starting with -A
}

// findRules scans INPUT and OUTPUT of both tables for rules tagged
// with the comment of ruleName.
func (g *IPSet) findRules(ctx context.Context, ruleName string) ([]installedRule, error) {
	comment := ruleComment(ruleName)
	var found []installedRule
	for _, prog := range []string{g.iptablesPath, g.ip6tablesPath} {
		for _, chain := range []string{"INPUT", "OUTPUT"} {
			args := append(append([]string{}, waitArgs...), "-S", chain)
			out, err := g.run(ctx, prog, "", args...)
			if err != nil {
				return nil, err
			}

			scanner := bufio.NewScanner(bytes.NewReader(out))
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "-A ") || !strings.Contains(line, "--comment") {
					continue
				}
				words, err := shellwords.Parse(line)
				if err != nil {
					g.logger.Warn("unable to parse rule", "prog", prog, "rule", line, "err", err)
					continue
				}
				if commentOf(words) == comment {
					found = append(found, installedRule{prog: prog, args: words})
				}
			}
		}
	}
	return found, nil
}

// commentOf returns the value following --comment in a parsed rule.
func commentOf(words []string) string {
	for i := 0; i < len(words)-1; i++ {
		if words[i] == "--comment" {
			return words[i+1]
		}
	}
	return ""
}

// DeleteRule implements [Gateway].
func (g *IPSet) DeleteRule(ctx context.Context, ruleName string) error {
	rules, err := g.findRules(ctx, ruleName)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, ruleName)
	}

	var errs []error
	for _, r := range rules {
		// From: -A OUTPUT -m set [...]
		// To:   -D OUTPUT -m set [...]
		del := append(append([]string{}, waitArgs...), "-D")
		del = append(del, r.args[1:]...)
		if _, err := g.run(ctx, r.prog, "", del...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	g.logger.Info("rule deleted", "rule", ruleName, "entries", len(rules))
	return nil
}
