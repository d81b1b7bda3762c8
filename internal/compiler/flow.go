package compiler

import (
	"strings"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/naming"
)

// Boundary node names.
const (
	StartNode = "start"
	EndNode   = "end"
)

// Edge is one ">>" dependency between node expressions.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (e Edge) String() string {
	return e.From + " >> " + e.To
}

// stageNode returns the operator reference for a one-task stage, a bracketed
// list for a parallel stage, or "" for an empty stage.
func stageNode(stage models.Stage) string {
	switch len(stage.Tasks) {
	case 0:
		return ""
	case 1:
		return naming.OperatorVar(stage.Tasks[0].Name)
	}
	vars := make([]string, len(stage.Tasks))
	for i, t := range stage.Tasks {
		vars[i] = naming.OperatorVar(t.Name)
	}
	return "[" + strings.Join(vars, ", ") + "]"
}

// FlowEdges chains the stages from start to end. Empty stages are skipped
// and do not move the cursor.
func FlowEdges(pipeline []models.Stage) []Edge {
	var edges []Edge
	prev := StartNode
	for _, stage := range pipeline {
		node := stageNode(stage)
		if node == "" {
			continue
		}
		edges = append(edges, Edge{From: prev, To: node})
		prev = node
	}
	return append(edges, Edge{From: prev, To: EndNode})
}
