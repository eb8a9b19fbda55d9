package openapi

import (
	"fmt"
	"sort"
	"strings"
)

type documentBuilder struct {
	config generatorConfig
}

func newDocumentBuilder(config generatorConfig) documentBuilder {
	return documentBuilder{config: config}
}

func (b documentBuilder) build(properties, components map[string]any) (map[string]any, error) {
	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(properties),
	}
	if len(components) > 0 {
		document["components"] = map[string]any{
			"schemas": components,
		}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

func (b documentBuilder) buildPaths(properties map[string]any) map[string]any {
	method := strings.ToLower(b.config.operation.Method)
	if method == "" {
		method = "put"
	}

	content := map[string]any{
		b.config.contentType: map[string]any{
			"schema": map[string]any{
				"type":       "object",
				"properties": properties,
			},
		},
	}

	responses := make(map[string]any, len(b.config.responses))
	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		responses[status] = map[string]any{
			"description": b.config.responses[status].Description,
		}
	}

	operation := map[string]any{
		"operationId": b.operationID(method),
		"requestBody": map[string]any{
			"required": true,
			"content":  content,
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(b.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}

	return map[string]any{
		b.config.operation.Path: map[string]any{
			method: operation,
		},
	}
}

func (b documentBuilder) operationID(method string) string {
	if b.config.operation.OperationID != "" {
		return b.config.operation.OperationID
	}
	return fmt.Sprintf("%s:%s", method, b.config.operation.Path)
}

func validateDocument(document map[string]any) error {
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	for _, field := range []string{"title", "version"} {
		if value, _ := info[field].(string); value == "" {
			return fmt.Errorf("openapi: info.%s must be set", field)
		}
	}

	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for path, item := range paths {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("openapi: path %q must start with '/'", path)
		}
		operations, _ := item.(map[string]any)
		if len(operations) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", path)
		}
		for method, value := range operations {
			operation, _ := value.(map[string]any)
			if id, _ := operation["operationId"].(string); id == "" {
				return fmt.Errorf("openapi: %s %s missing operationId", method, path)
			}
			if responses, _ := operation["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: %s %s missing responses", method, path)
			}
		}
	}
	return nil
}
