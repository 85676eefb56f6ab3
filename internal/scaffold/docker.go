package scaffold

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ComposeVersion is written as the docker-compose file format version.
const ComposeVersion = "3.8"

var dockerfiles = map[DockerTemplate]string{
	TemplateFullStack: `# Multi-stage build for full-stack application
FROM node:18-alpine AS base

# Backend stage
FROM base AS backend
WORKDIR /app/backend
COPY src/backend/package*.json ./
RUN npm install
COPY src/backend/ .

# Frontend stage
FROM base AS frontend
WORKDIR /app/frontend
COPY src/frontend/package*.json ./
RUN npm install
COPY src/frontend/ .

# Production stage
FROM node:18-alpine AS production
WORKDIR /app

COPY --from=backend /app/backend ./backend
COPY --from=backend /app/backend/node_modules ./backend/node_modules

COPY --from=frontend /app/frontend ./frontend
COPY --from=frontend /app/frontend/node_modules ./frontend/node_modules

RUN npm install -g serve

EXPOSE 5000 3000
CMD ["sh", "-c", "cd backend && npm start & cd ../frontend && npm run build && serve -s build -l 3000"]
`,
	TemplateBackend:  singleStage("5000"),
	TemplateFrontend: singleStage("3000"),
	TemplateDefault:  singleStage("3000"),
}

func singleStage(port string) string {
	return `FROM node:18-alpine

WORKDIR /app
COPY package*.json ./
RUN npm install
COPY . .

EXPOSE ` + port + `
CMD ["npm", "start"]
`
}

// DockerfileText returns the Dockerfile text for the layout's template.
func (l Layout) DockerfileText() string {
	if s, ok := dockerfiles[l.Dockerfile]; ok {
		return s
	}
	return dockerfiles[TemplateDefault]
}

// ComposeYAML renders the docker-compose file. Services keep their planned
// order. It returns nil when the layout is not multi-service.
func (l Layout) ComposeYAML() ([]byte, error) {
	if l.Container != ContainerCompose {
		return nil, nil
	}

	services := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range l.Services {
		services.Content = append(services.Content, scalar(s.Name), serviceNode(s))
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content,
		scalar("version"), &yaml.Node{Kind: yaml.ScalarNode, Value: ComposeVersion, Style: yaml.SingleQuotedStyle},
		scalar("services"), services,
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("encoding compose file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding compose file: %w", err)
	}
	return buf.Bytes(), nil
}

func serviceNode(s Service) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	field := func(key string, v *yaml.Node) {
		n.Content = append(n.Content, scalar(key), v)
	}
	if s.Build != "" {
		field("build", scalar(s.Build))
	}
	if s.Image != "" {
		field("image", scalar(s.Image))
	}
	if len(s.Ports) > 0 {
		field("ports", seq(s.Ports))
	}
	if len(s.Volumes) > 0 {
		field("volumes", seq(s.Volumes))
	}
	if len(s.Environment) > 0 {
		field("environment", seq(s.Environment))
	}
	if len(s.DependsOn) > 0 {
		field("depends_on", seq(s.DependsOn))
	}
	if s.Command != "" {
		field("command", scalar(s.Command))
	}
	return n
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func seq(items []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	for _, it := range items {
		n.Content = append(n.Content, scalar(it))
	}
	return n
}
