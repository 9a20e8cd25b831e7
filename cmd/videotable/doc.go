// Command videotable converts columns of a table file into video containers
// and reconstructs them.
//
//	videotable encode --table data.db --rules rules.toml [--batch id] [--on-error skip] [--json]
//	videotable decode --batch-dir ~/.local/share/videotable/batches --batch id --name temps
//	videotable status --batch id
//	videotable check
//	videotable config init|show
package main
