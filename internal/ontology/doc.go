// Package ontology models ontology manifests: the relations and object types a
// space is expected to contain.
//
// A manifest is written in YAML or JSON using the backend's field names:
//
//	name: crm
//	relations:
//	  - name: Email
//	    format: email
//	  - name: Stage
//	    format: select
//	    selectOptions:
//	      - name: Lead
//	        color: blue
//	types:
//	  - name: Contact
//	    layout: profile
//	    relations: [Email, Stage]
//
// Omitted keys are derived from names, formats default to shorttext, layouts to
// basic and the version to 1.0.0.
package ontology
