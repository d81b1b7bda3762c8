// Package naming holds the identifier and path rules shared by every
// generated artifact, so the DAG, the logic module and the metadata file
// always agree on a name.
package naming

import "strings"

// WorkspaceRoot prefixes relative I/O paths in the metadata file.
const WorkspaceRoot = "/home/jovyan/workspaces"

// Identifier maps a task name to a Python identifier by replacing every
// character outside [A-Za-z0-9_] with an underscore.
func Identifier(name string) string {
	return strings.Map(func(r rune) rune {
		if isIdentRune(r) {
			return r
		}
		return '_'
	}, name)
}

func isIdentRune(c rune) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// ValidProject reports whether name is usable as a directory, a branch
// component and a Python string literal: only [A-Za-z0-9_-].
func ValidProject(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !isIdentRune(r) && r != '-' {
			return false
		}
	}
	return true
}

// OperatorVar is the DAG variable holding the operator for a task.
func OperatorVar(taskName string) string {
	return "t_" + Identifier(taskName)
}

// DagID is the graph container id for a project.
func DagID(project string) string {
	return "dag_" + strings.ReplaceAll(project, "-", "_")
}

// RepoDir is the r_<code>_<project> directory inside a project.
func RepoDir(ownerCode, project string) string {
	return "r_" + ownerCode + "_" + project
}

// Folder is the composite folder value of the metadata file.
func Folder(project, ownerCode string) string {
	return project + "/" + RepoDir(ownerCode, project)
}

// AbsWorkspacePath returns p unchanged when absolute, otherwise rooted at
// WorkspaceRoot.
func AbsWorkspacePath(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return WorkspaceRoot + "/" + p
}
