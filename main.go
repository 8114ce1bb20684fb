/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// The launcher: argument parsing and process startup, grounded on
// jacobin's cli_test.go (getEnvArgs/HandleCli/showCopyright) for the
// hand-rolled single-dash java-style flags, and on the broader pack's
// pflag convention (moby, k6, kube-state-metrics) for the double-dash
// JPMS flags (--add-reads/--add-exports/--add-opens/--add-modules/
// --module-path/--upgrade-module-path) pflag's GNU-style parser was
// built for but jacobin's own single-dash grammar (-cp, -version,
// -help) was not, so args are split into the two families before
// either parser sees them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"jacobin/gfunction"
	"jacobin/globals"
	"jacobin/jvm"
	"jacobin/shutdown"
)

func main() {
	globals.InitGlobals(os.Args[0])
	g := globals.GetGlobalRef()

	jvm.Init(gfunction.Lookup)
	gfunction.LoadAll()

	args := append(strings.Fields(getEnvArgs()), os.Args[1:]...)
	if err := HandleCli(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		shutdown.Exit(shutdown.APP_EXCEPTION)
		return
	}
	if g.ExitNow {
		shutdown.Exit(shutdown.OK)
	}
}

// getEnvArgs collects the three environment variables the JVM launch
// protocol reads options from, in precedence order, joined by a single
// space. A variable that isn't set contributes nothing.
func getEnvArgs() string {
	var parts []string
	for _, name := range []string{"JAVA_TOOL_OPTIONS", "_JAVA_OPTIONS", "JDK_JAVA_OPTIONS"} {
		if v := os.Getenv(name); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// HandleCli parses a full argument list (environment-derived options
// prepended to the real command line) and applies it to the global
// module configuration and starting-class selection. JPMS's six
// double-dash flags are pulled out first and handed to a pflag.FlagSet;
// everything else follows jacobin's own single-dash grammar.
func HandleCli(args []string) error {
	g := globals.GetGlobalRef()

	var longArgs, shortArgs []string
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			longArgs = append(longArgs, a)
		} else {
			shortArgs = append(shortArgs, a)
		}
	}

	fs := pflag.NewFlagSet("jacobin", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addReads := fs.StringArray("add-reads", nil, "module=target-module(,target-module)*")
	addExports := fs.StringArray("add-exports", nil, "module/package=target-module(,target-module)*")
	addOpens := fs.StringArray("add-opens", nil, "module/package=target-module(,target-module)*")
	addModules := fs.StringArray("add-modules", nil, "module(,module)*")
	modulePath := fs.String("module-path", "", "module path")
	upgradeModulePath := fs.String("upgrade-module-path", "", "upgrade module path")
	if err := fs.Parse(longArgs); err != nil {
		return err
	}

	for _, spec := range *addReads {
		applyAddReads(g.ModuleConfig, spec)
	}
	for _, spec := range *addExports {
		applyAddExportsOrOpens(g.ModuleConfig.AddExport, g.ModuleConfig.AddExportToAll, spec)
	}
	for _, spec := range *addOpens {
		applyAddExportsOrOpens(g.ModuleConfig.AddOpens, g.ModuleConfig.AddOpensToAll, spec)
	}
	_ = addModules // accepted, not yet consulted: module resolution is out of scope (§1)
	_ = modulePath
	_ = upgradeModulePath

	return handleShortArgs(g, shortArgs)
}

func applyAddReads(mc interface{ AddRead(string, string) }, spec string) {
	source, targets, ok := splitOnce(spec, '=')
	if !ok {
		return
	}
	for _, t := range strings.Split(targets, ",") {
		mc.AddRead(source, t)
	}
}

// applyAddExportsOrOpens parses "module/package=target1,target2" (or
// bare "module/package" for "export to all") and calls the
// appropriately-scoped setter for each target.
func applyAddExportsOrOpens(addTo func(source, pkg, target string), addToAll func(source, pkg string), spec string) {
	modPkg, targets, hasTargets := splitOnce(spec, '=')
	source, pkg, ok := splitOnce(modPkg, '/')
	if !ok {
		return
	}
	if !hasTargets {
		addToAll(source, pkg)
		return
	}
	for _, t := range strings.Split(targets, ",") {
		addTo(source, pkg, t)
	}
}

func splitOnce(s string, sep byte) (before, after string, ok bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// handleShortArgs implements jacobin's own single-dash launcher
// grammar: -cp/-classpath, -version/-showversion, -help/-?, and the
// starting class or jar, the last non-flag argument java accepts.
func handleShortArgs(g *globals.Globals, args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-cp" || arg == "-classpath" || arg == "--class-path":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires an argument", arg)
			}
			i++
			g.CommandLine = args[i]
		case arg == "-version" || arg == "-showversion":
			fmt.Fprintf(os.Stderr, "Jacobin VM v.%s\n", g.Version)
			g.ExitNow = true
		case arg == "-help" || arg == "-?" || arg == "--help":
			printUsage()
			g.ExitNow = true
		case arg == "-Xverify:none":
			g.VerifyLevel = globals.VerifyNone
		case strings.HasPrefix(arg, "-Xverify"):
			g.VerifyLevel = globals.VerifyStrict
		case strings.HasPrefix(arg, "-verbose:class"):
			g.TraceClass = true
		case strings.HasPrefix(arg, "-"):
			// Unrecognized single-dash flag: jacobin tolerates it the
			// way the JVM tolerates vendor-specific -XX flags it
			// doesn't implement rather than aborting the whole launch.
		default:
			if g.StartingClass == "" && g.StartingJar == "" {
				if strings.HasSuffix(arg, ".jar") {
					g.StartingJar = arg
				} else {
					g.StartingClass = arg
				}
			} else {
				g.AppArgs = append(g.AppArgs, arg)
			}
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: jacobin [options] class [args...]")
	fmt.Fprintln(os.Stderr, "       jacobin [options] -jar jarfile [args...]")
	fmt.Fprintln(os.Stderr, "where options include:")
	fmt.Fprintln(os.Stderr, "    -cp -classpath <path>   application classpath")
	fmt.Fprintln(os.Stderr, "    -version -showversion   print VM version")
	fmt.Fprintln(os.Stderr, "    --add-reads <m>=<target>")
	fmt.Fprintln(os.Stderr, "    --add-exports <m>/<pkg>=<target>")
	fmt.Fprintln(os.Stderr, "    --add-opens <m>/<pkg>=<target>")
	showCopyright()
}

func showCopyright() {
	fmt.Println("Jacobin VM, a Java-compatible virtual machine written in Go.")
	fmt.Println("Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.")
}
