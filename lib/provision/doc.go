// Package provision creates the tenants, tables and extensions a server starts with.
//
// The state is described by a YAML manifest (see Manifest), optionally extended by seed
// databases in bbolt format holding bulk table content. Without a manifest the server uses
// Default, which provisions tenant 1 with table 1, a single entry and the builtin "get"
// extension.
//
// Example manifest:
//
//	tenants:
//	  - id: 1
//	    tables:
//	      - id: 1
//	        entries:
//	          - key: {fill: 1, len: 30}
//	            value: {fill: 91, len: 100}
//	          - key: greeting
//	            value: {hex: "68656c6c6f"}
//	    extensions:
//	      - name: get
//	        source: builtin:get
//	        access: read
//	      - name: custom
//	        source: ./plugins/custom.so
//	        checksum: 4f1c...
//	seeds:
//	  - bolt:seed.db
package provision
