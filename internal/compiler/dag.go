package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/naming"
)

// NoSchedule is written for projects that are triggered manually.
const NoSchedule = "None"

const dagHeader = `from airflow import DAG
from airflow.operators.dummy import DummyOperator
from airflow.operators.python import PythonOperator
from datetime import datetime
%s

# --- Configuration ---
custom_env_name = "airflow-env"
schedule_interval = None

default_args = {
    'owner': 'airflow',
    'start_date': datetime(2023, 1, 1),
}

with DAG('%s',
         default_args=default_args,
         schedule_interval=schedule_interval,
         catchup=False) as dag:

    start = DummyOperator(task_id='start')
    end = DummyOperator(task_id='end')

`

var (
	envNameLine  = regexp.MustCompile(`custom_env_name\s*=\s*["'].*?["']`)
	scheduleLine = regexp.MustCompile(`schedule_interval\s*=\s*[^,\n)]+`)
)

// DAG renders the orchestration graph definition.
func DAG(cfg *models.ProjectConfig) string {
	tasks := cfg.Tasks()

	importLine := ""
	if len(tasks) > 0 {
		names := make([]string, len(tasks))
		for i, t := range tasks {
			names[i] = naming.Identifier(t.Name)
		}
		importLine = "from src.treatment import " + strings.Join(names, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, dagHeader, importLine, naming.DagID(cfg.Name))

	for _, t := range tasks {
		id := naming.Identifier(t.Name)
		fmt.Fprintf(&b, "    %s = PythonOperator(\n", naming.OperatorVar(t.Name))
		fmt.Fprintf(&b, "        task_id='%s',\n", id)
		fmt.Fprintf(&b, "        python_callable=%s,\n", id)
		fmt.Fprintf(&b, "        priority_weight=%d,\n", t.Priority.Weight())
		fmt.Fprintf(&b, "        pool='%s',\n", cfg.ResolvePool(t))
		fmt.Fprintf(&b, "        pool_slots=%d,\n", t.Slots)
		b.WriteString("        dag=dag\n")
		b.WriteString("    )\n\n")
	}

	b.WriteString("    # Pipeline Flow\n")
	for _, e := range FlowEdges(cfg.Pipeline) {
		b.WriteString("    " + e.String() + "\n")
	}

	content := b.String()
	if cfg.UseManagedEnv && cfg.EnvName != "" {
		content = replaceFirst(envNameLine, content, `custom_env_name = "`+cfg.EnvName+`"`)
	}
	return replaceFirst(scheduleLine, content, "schedule_interval = "+scheduleValue(cfg.Schedule))
}

func scheduleValue(expr string) string {
	if expr == "" {
		return NoSchedule
	}
	return `"` + expr + `"`
}

// replaceFirst substitutes the first match of re literally.
func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
