// Package cmisclient implements a CMIS 1.1 client for document registries
// built on the Documenten API domain model. It manages documents, folders,
// usage rights (gebruiksrechten) and document-to-case relation objects (oio)
// inside a remote content repository.
//
// The package is transport-agnostic: all remote operations go through the
// Binding interface, for which two wire strategies exist under
// binding/browser (JSON/form) and binding/soap (SOAP/XML with MIME
// attachments). An in-memory repository under repo/memory implements the
// same interface for tests and local development.
//
// Typical usage:
//
//	client, err := cmisclient.New(
//	    cmisclient.WithBinding(bind),
//	    cmisclient.WithBaseFolderName("DRC"),
//	)
//	doc, err := client.CreateDocument(ctx, data, content, "report.pdf")
package cmisclient
