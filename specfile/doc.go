// Package specfile reads and writes Commands as JSON or YAML documents.
//
// A single command:
//
//	{"name": "git", "arguments": ["status"], "inherit_environment": true,
//	 "environment": {"GIT_PAGER": "cat", "GIT_DIR": null}, "stdout": "Piped"}
//
// A null environment value removes the variable from the inherited
// environment and survives a round trip. Fields missing from a document take
// the defaults of process.New.
//
// A catalog keeps named commands in one document:
//
//	commands:
//	  status:
//	    name: git
//	    arguments: [status, --short]
package specfile
