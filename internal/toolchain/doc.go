// Package toolchain runs external toolchain commands (apktool, apksigner)
// with a bounded lifetime and bounded output capture.
//
// Run never interprets tool output. Success is exit code zero; every other
// outcome is either an OperationResult with Succeeded=false and the exit
// code, or a *ToolError whose Kind tells the caller whether the tool was
// missing, timed out, was cancelled, or could not be started.
//
// On unix each tool runs in its own process group so termination reaches
// any children it spawned (apktool launches a JVM, which may fork aapt).
package toolchain
