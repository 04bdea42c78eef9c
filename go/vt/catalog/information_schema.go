/*
Copyright 2026 The MPPDB Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package catalog

import "strings"

// Schema tables served by the coordinator. Rows come from live coordinator
// state, never from storage.
var schemaTableNames = []string{
	"CHARACTER_SETS",
	"COLLATIONS",
	"COLUMNS",
	"ENGINES",
	"GLOBAL_VARIABLES",
	"SCHEMA_PRIVILEGES",
	"SCHEMATA",
	"SESSION_VARIABLES",
	"STATISTICS",
	"TABLE_PRIVILEGES",
	"TABLES",
	"USER_PRIVILEGES",
	"VARIABLES",
	"VIEWS",
}

// IsSchemaTable reports whether name is one of the information_schema tables.
func IsSchemaTable(name string) bool {
	for _, n := range schemaTableNames {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func informationSchemaTables() map[string]*Table {
	tables := make(map[string]*Table, len(schemaTableNames))
	for i, name := range schemaTableNames {
		tables[strings.ToLower(name)] = &Table{
			// virtual table ids live in a reserved negative range
			ID:   -int64(i + 1),
			Name: name,
			Type: SchemaTable,
		}
	}
	return tables
}
