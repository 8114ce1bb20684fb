/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacobin/globals"
)

func captureStderr(t *testing.T, f func()) string {
	t.Helper()
	normal := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w

	f()

	w.Close()
	os.Stderr = normal
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	normal := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = normal
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestGetJVMEnvVariablesWhenAbsent(t *testing.T) {
	os.Unsetenv("JAVA_TOOL_OPTIONS")
	os.Unsetenv("_JAVA_OPTIONS")
	os.Unsetenv("JDK_JAVA_OPTIONS")

	assert.Equal(t, "", getEnvArgs())
}

func TestGetJVMEnvVariablesWhenTwoArePresent(t *testing.T) {
	os.Unsetenv("JAVA_TOOL_OPTIONS")
	os.Setenv("_JAVA_OPTIONS", "Hello,")
	os.Setenv("JDK_JAVA_OPTIONS", "Jacobin!")
	defer func() {
		os.Unsetenv("_JAVA_OPTIONS")
		os.Unsetenv("JDK_JAVA_OPTIONS")
	}()

	assert.Equal(t, "Hello, Jacobin!", getEnvArgs())
}

func TestHandleUsageMessage(t *testing.T) {
	globals.InitGlobals(os.Args[0])

	msg := captureStderr(t, func() {
		require.NoError(t, HandleCli([]string{"-help"}))
	})

	assert.Contains(t, msg, "Usage:")
	assert.Contains(t, msg, "where options include")
	assert.True(t, globals.GetGlobalRef().ExitNow)
}

func TestHandleShowVersionMessage(t *testing.T) {
	globals.InitGlobals(os.Args[0])

	msg := captureStderr(t, func() {
		require.NoError(t, HandleCli([]string{"-showversion"}))
	})

	assert.Contains(t, msg, "Jacobin VM v.")
}

func TestShowCopyright(t *testing.T) {
	out := captureStdout(t, showCopyright)
	assert.Contains(t, out, "All rights reserved.")
	assert.Contains(t, out, "2021")
}

func TestHandleCliSetsStartingClass(t *testing.T) {
	globals.InitGlobals(os.Args[0])

	require.NoError(t, HandleCli([]string{"-cp", "out", "com.example.Main", "arg1"}))

	g := globals.GetGlobalRef()
	assert.Equal(t, "out", g.CommandLine)
	assert.Equal(t, "com.example.Main", g.StartingClass)
	assert.Equal(t, []string{"arg1"}, g.AppArgs)
}

func TestHandleCliParsesModuleFlags(t *testing.T) {
	globals.InitGlobals(os.Args[0])

	require.NoError(t, HandleCli([]string{
		"--add-reads", "app=svc",
		"--add-exports", "svc/svc.pkg=app",
		"--add-opens", "svc/svc.pkg=app",
	}))

	g := globals.GetGlobalRef()
	assert.True(t, g.ModuleConfig.CanRead("app", "svc"))
	assert.True(t, g.ModuleConfig.IsExported("svc", "svc.pkg", "app"))
	assert.True(t, g.ModuleConfig.IsOpened("svc", "svc.pkg", "app"))
}
