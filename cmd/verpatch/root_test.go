package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"verpatch/coloransi"
	"verpatch/patcher"
	"verpatch/process"
	"verpatch/process_blob"
	"verpatch/version"
)

func TestParsePositional(t *testing.T) {
	tests := []struct {
		args    []string
		want    positional
		wantErr bool
	}{
		{[]string{"c=3.9.6.33", "t=3.9.12.51"}, positional{"3.9.6.33", "3.9.12.51"}, false},
		{[]string{"T=3.9.12.51"}, positional{"", "3.9.12.51"}, false},
		{nil, positional{}, false},
		{[]string{"3.9.6.33"}, positional{}, true},
		{[]string{"c="}, positional{}, true},
		{[]string{"x=1.2.3.4"}, positional{}, true},
	}

	for _, tt := range tests {
		got, err := parsePositional(tt.args)
		if tt.wantErr {
			var uerr usageError
			if !errors.As(err, &uerr) {
				t.Errorf("parsePositional(%v) err = %v, want usage error", tt.args, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parsePositional(%v) = %+v, %v", tt.args, got, err)
		}
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func noInstall() (*installInfo, error) {
	return nil, errors.New("no registry")
}

func TestResolvePlan(t *testing.T) {
	jsonDir := writeConfig(t, "config.json", `{"version": "3.9.12.51", "name": "Weixin.exe", "encoding": "ascii"}`)
	yamlDir := writeConfig(t, "config.yaml", "version: 3.9.12.51\ncurrent: 3.9.6.33\nmodule: WeChatWin.dll\ninstall_path: C:\\WeChat\n")
	emptyDir := t.TempDir()

	registry := func() (*installInfo, error) {
		return &installInfo{Current: version.MustParse("3.9.10.27"), Path: `C:\Program Files\Tencent\WeChat`}, nil
	}

	tests := []struct {
		name        string
		args        []string
		flags       []string
		dir         string
		install     func() (*installInfo, error)
		wantCurrent string
		wantTarget  string
		wantName    string
		wantEnc     version.Encoding
		wantModule  string
		wantPath    string
		wantErr     bool
	}{
		{
			name: "arguments only", args: []string{"c=3.9.6.33", "t=3.9.12.51"}, dir: emptyDir, install: noInstall,
			wantCurrent: "3.9.6.33", wantTarget: "3.9.12.51", wantName: "WeChat.exe", wantEnc: version.Packed,
		},
		{
			name: "json config", args: []string{"c=3.9.6.33"}, dir: jsonDir, install: noInstall,
			wantCurrent: "3.9.6.33", wantTarget: "3.9.12.51", wantName: "Weixin.exe", wantEnc: version.ASCII,
		},
		{
			name: "flags beat config", args: []string{"c=3.9.6.33"}, flags: []string{"--name", "WeChat.exe", "--encoding", "utf16"}, dir: jsonDir, install: noInstall,
			wantCurrent: "3.9.6.33", wantTarget: "3.9.12.51", wantName: "WeChat.exe", wantEnc: version.UTF16,
		},
		{
			name: "yaml config", dir: yamlDir, install: noInstall,
			wantCurrent: "3.9.6.33", wantTarget: "3.9.12.51", wantName: "WeChat.exe", wantEnc: version.Packed,
			wantModule: "WeChatWin.dll", wantPath: `C:\WeChat`,
		},
		{
			name: "current from registry", args: []string{"t=3.9.12.51"}, dir: emptyDir, install: registry,
			wantCurrent: "3.9.10.27", wantTarget: "3.9.12.51", wantName: "WeChat.exe", wantEnc: version.Packed,
			wantPath: `C:\Program Files\Tencent\WeChat`,
		},
		{name: "no target", args: []string{"c=3.9.6.33"}, dir: emptyDir, install: noInstall, wantErr: true},
		{name: "no current", args: []string{"t=3.9.12.51"}, dir: emptyDir, install: noInstall, wantErr: true},
		{name: "malformed target", args: []string{"c=3.9.6.33", "t=3.9.x.51"}, dir: emptyDir, install: noInstall, wantErr: true},
		{name: "unknown encoding", args: []string{"c=3.9.6.33", "t=3.9.12.51"}, flags: []string{"--encoding", "utf32"}, dir: emptyDir, install: noInstall, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := exitDone
			cmd := newRootCommand(&bytes.Buffer{}, &code)
			if err := cmd.Flags().Parse(tt.flags); err != nil {
				t.Fatalf("flags: %v", err)
			}

			opts := &options{}
			opts.name, _ = cmd.Flags().GetString("name")
			opts.encoding, _ = cmd.Flags().GetString("encoding")
			opts.module, _ = cmd.Flags().GetString("module")

			p, err := resolvePlan(tt.args, opts, cmd.Flags(), []string{tt.dir}, tt.install)
			if tt.wantErr {
				var uerr usageError
				if !errors.As(err, &uerr) {
					t.Fatalf("err = %v, want usage error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolvePlan: %v", err)
			}

			req := p.request
			if req.Current.String() != tt.wantCurrent || req.Target.String() != tt.wantTarget {
				t.Errorf("versions %s -> %s", req.Current, req.Target)
			}
			if req.Name != tt.wantName || req.Encoding != tt.wantEnc {
				t.Errorf("name %q encoding %s", req.Name, req.Encoding)
			}
			if p.module != tt.wantModule || p.installPath != tt.wantPath {
				t.Errorf("module %q install path %q", p.module, p.installPath)
			}
		})
	}
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}

	dir := writeConfig(t, "config.json", `{"version": [}`)
	if _, err := loadConfig("", []string{dir}); err == nil {
		t.Fatalf("expected error for a malformed config file")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		report *patcher.Report
		err    error
		want   int
	}{
		{&patcher.Report{Outcome: patcher.Done}, nil, exitDone},
		{&patcher.Report{Outcome: patcher.NotFound}, patcher.ErrPatternNotFound, exitNotFound},
		{&patcher.Report{Outcome: patcher.PartialFailure}, patcher.ErrPartialFailure, exitPartial},
		{&patcher.Report{Outcome: patcher.Aborted}, patcher.ErrInvalidPatternLength, exitAborted},
		{nil, errors.New("no such process"), exitAborted},
		{nil, fmt.Errorf("wrapped: %w", usageError{errors.New("bad flag")}), exitUsage},
	}

	for _, tt := range tests {
		if got := exitCode(tt.report, tt.err); got != tt.want {
			t.Errorf("exitCode(%v, %v) = %d, want %d", tt.report, tt.err, got, tt.want)
		}
	}
}

func TestExecuteUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--no-such-flag"},
		{"c=3.9.6.33", "t=3.9.12.51", "extra"},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "c=3.9.6.33", "t=3.9.12.51"},
	} {
		if code := execute(args); code != exitUsage {
			t.Errorf("execute(%v) = %d, want %d", args, code, exitUsage)
		}
	}
}

func TestRunRejectsTargetBeforeLookup(t *testing.T) {
	p := &plan{request: patcher.Request{
		Name:     "WeChat.exe",
		Current:  version.MustParse("3.9.6.33"),
		Target:   version.MustParse("3.9.6.331"),
		Encoding: version.Packed,
	}}

	var out bytes.Buffer
	report, err := run(&out, p, &options{launch: true})
	if !errors.Is(err, patcher.ErrInvalidPatternLength) {
		t.Fatalf("run err = %v, want ErrInvalidPatternLength", err)
	}
	if code := exitCode(report, err); code != exitAborted {
		t.Errorf("exit code %d, want %d", code, exitAborted)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestPatchPrinterDump(t *testing.T) {
	coloransi.SetEnabled(false)
	defer coloransi.SetEnabled(true)

	data := make([]byte, 0x40)
	copy(data[0x10:], []byte{0x33, 0x0c, 0x09, 0x63})
	image := process_blob.NewProcessImage(1, "WeChat.exe", process_blob.NewProcessBlob(0x1000, data))

	var out bytes.Buffer
	patchPrinter(&out, 4, true)(image, process.ProcessMemoryAddress(0x1010))

	if !bytes.Contains(out.Bytes(), []byte("0x1010")) || !bytes.Contains(out.Bytes(), []byte("33 0c 09 63")) {
		t.Errorf("output = %q", out.String())
	}
}
