//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"verpatch/patcher"
	"verpatch/process"
	"verpatch/process/memory_map"

	"golang.org/x/sys/unix"
)

func writeFakeProc(t *testing.T, root, pid, comm, state, exe string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	status := "Name:\t" + comm + "\nState:\t" + state + " (whatever)\nPPid:\t1\n"
	if err := os.WriteFile(filepath.Join(dir, "status"), []byte(status), 0644); err != nil {
		t.Fatal(err)
	}
	if exe != "" {
		if err := os.Symlink(exe, filepath.Join(dir, "exe")); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindProcessByName(t *testing.T) {
	root := t.TempDir()
	writeFakeProc(t, root, "100", "WeChat.exe", "S", "")
	writeFakeProc(t, root, "200", "wine64-preload", "S", "/opt/wine/wechat.EXE")
	writeFakeProc(t, root, "300", "WeChat.exe", "Z", "")
	writeFakeProc(t, root, "400", "bash", "R", "/usr/bin/bash")
	if err := os.MkdirAll(filepath.Join(root, "self"), 0755); err != nil {
		t.Fatal(err)
	}

	finder := &LinuxProcessFinder{Root: root}

	found, err := finder.FindProcessByName("wechat.exe")
	if err != nil {
		t.Fatalf("FindProcessByName: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d processes, want 2: %+v", len(found), found)
	}
	pids := map[process.ProcessID]bool{}
	for _, p := range found {
		pids[p.PID] = true
	}
	if !pids[100] || !pids[200] {
		t.Errorf("unexpected pids %v", pids)
	}

	info, err := finder.FindProcessByPID(400)
	if err != nil {
		t.Fatalf("FindProcessByPID: %v", err)
	}
	if info.Name != "bash" || info.PPID != 1 || info.State != process.ProcessRunning {
		t.Errorf("unexpected info %+v", info)
	}

	if _, err := finder.FindProcessByPID(999); !errors.Is(err, process.ErrProcessNotFound) {
		t.Errorf("expected ErrProcessNotFound, got %v", err)
	}

	all, err := finder.FindAllProcesses()
	if err != nil || len(all) != 4 {
		t.Errorf("FindAllProcesses = %d, %v", len(all), err)
	}
}

func TestOpenMissingProcess(t *testing.T) {
	_, err := NewWithPID(process.ProcessID(1 << 30))
	if !errors.Is(err, process.ErrProcessNotFound) {
		t.Fatalf("expected ErrProcessNotFound, got %v", err)
	}
}

func TestSelfReadWrite(t *testing.T) {
	buf := bytes.Repeat([]byte{0xAA}, 64)

	readOnly, err := unix.Mmap(-1, 0, os.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		t.Skipf("mmap: %v", err)
	}
	defer unix.Munmap(readOnly)
	copy(readOnly, "3.9.6.33")
	if err := unix.Mprotect(readOnly, unix.PROT_READ); err != nil {
		t.Skipf("mprotect: %v", err)
	}

	proc, err := NewWithPID(process.ProcessID(os.Getpid()))
	if err != nil {
		t.Fatalf("NewWithPID: %v", err)
	}
	defer proc.Close()

	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&buf[0])))
	data, err := proc.ReadMemory(addr, process.ProcessMemorySize(len(buf)))
	if err != nil {
		t.Skipf("process_vm_readv unavailable: %v", err)
	}
	if !bytes.Equal(data, buf) {
		t.Fatalf("read mismatch")
	}

	if err := proc.WriteMemory(addr+8, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteMemory: %v", err)
	}
	if !bytes.Equal(buf[8:12], []byte{1, 2, 3, 4}) {
		t.Fatalf("write not visible: %x", buf[8:12])
	}

	roAddr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&readOnly[0])))
	if err := proc.WriteMemory(roAddr, []byte("3.9.9.99")); !errors.Is(err, process.ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}

	restore, err := proc.Unprotect(roAddr, 8)
	if err != nil {
		t.Skipf("Unprotect: %v", err)
	}
	if err := proc.WriteMemory(roAddr, []byte("3.9.9.99")); err != nil {
		t.Fatalf("forced WriteMemory: %v", err)
	}
	if err := restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if string(readOnly[:8]) != "3.9.9.99" {
		t.Fatalf("forced write not visible: %q", readOnly[:8])
	}

	found := false
	for region, err := range memory_map.Regions(proc) {
		if err != nil {
			t.Fatalf("Regions: %v", err)
		}
		if region.Contains(uint64(roAddr), 8) {
			found = true
			if region.IsWritable() {
				t.Errorf("region protection changed: %s", region)
			}
		}
	}
	if !found {
		t.Errorf("mmapped region not enumerated")
	}
}

func TestCloseTwice(t *testing.T) {
	proc, err := NewWithPID(process.ProcessID(os.Getpid()))
	if err != nil {
		t.Skipf("NewWithPID: %v", err)
	}
	if err := proc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := proc.Close(); !errors.Is(err, process.ErrProcessNotOpen) {
		t.Fatalf("second Close = %v, want ErrProcessNotOpen", err)
	}
}

func TestTranslateErrorExited(t *testing.T) {
	self := os.Getpid()

	tests := []struct {
		name string
		pid  int
		err  error
		want error
	}{
		{"no such process", self, unix.ESRCH, process.ErrProcessExited},
		{"missing proc entry", self, os.ErrNotExist, process.ErrProcessExited},
		{"permission", self, os.ErrPermission, process.ErrAccessDenied},
		{"gone", 1 << 30, errors.New("io error"), process.ErrProcessExited},
	}

	for _, tt := range tests {
		if err := translateError(tt.pid, tt.err); !errors.Is(err, tt.want) {
			t.Errorf("%s: translateError = %v, want %v", tt.name, err, tt.want)
		}
	}
}

// startZombie starts sleep, opens it and kills it without reaping, leaving
// its /proc entry behind with an empty address space.
func startZombie(t *testing.T) (*exec.Cmd, process.Process) {
	t.Helper()

	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	cmd := exec.Command(path, "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("start sleep: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	proc, err := NewWithPID(process.ProcessID(cmd.Process.Pid))
	if err != nil {
		t.Skipf("NewWithPID: %v", err)
	}
	t.Cleanup(func() { _ = proc.Close() })

	if err := cmd.Process.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for procAlive(cmd.Process.Pid) {
		if time.Now().After(deadline) {
			t.Fatalf("process %d did not exit", cmd.Process.Pid)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !procExists(cmd.Process.Pid) {
		t.Skipf("process %d was reaped", cmd.Process.Pid)
	}
	return cmd, proc
}

func TestPatchExitedProcess(t *testing.T) {
	_, proc := startZombie(t)

	report, err := patcher.New().Patch(proc, []byte("3.9.6.33"), []byte("3.9.6.34"))
	if !errors.Is(err, process.ErrProcessExited) {
		t.Fatalf("Patch err = %v, want ErrProcessExited", err)
	}
	if report.Outcome != patcher.Aborted {
		t.Errorf("outcome = %s, want %s", report.Outcome, patcher.Aborted)
	}
}

func TestOpenExitedProcess(t *testing.T) {
	cmd, _ := startZombie(t)

	if _, err := NewWithPID(process.ProcessID(cmd.Process.Pid)); !errors.Is(err, process.ErrProcessExited) {
		t.Fatalf("NewWithPID err = %v, want ErrProcessExited", err)
	}
}
