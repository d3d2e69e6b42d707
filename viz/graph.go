// ABOUTME: GraphViz graph generation for the sales pipeline and single clients
// ABOUTME: Nodes are filled with the kanban stage colors; output is XDOT source
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/format"
	"github.com/harperreed/clientbook/models"
)

type GraphGenerator struct {
	app *app.App
}

func NewGraphGenerator(a *app.App) *GraphGenerator {
	return &GraphGenerator{app: a}
}

// render builds a graph with fill and renders it.
func render(ctx context.Context, label string, fill func(*cgraph.Graph) error) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel(label)
	graph.SetRankDir(cgraph.LRRank)

	if err := fill(graph); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func clientNode(graph *cgraph.Graph, c models.Client) (*cgraph.Node, error) {
	node, err := graph.CreateNodeByName("client_" + c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create client node: %w", err)
	}
	label := c.FullName()
	if c.Company != "" {
		label += "\n" + c.Company
	}
	node.SetLabel(label)
	node.SetShape("box")
	node.SetStyle("filled")
	node.SetFillColor("lightblue")
	return node, nil
}

func opportunityNode(graph *cgraph.Graph, o models.Opportunity) (*cgraph.Node, error) {
	node, err := graph.CreateNodeByName("opp_" + o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create opportunity node: %w", err)
	}
	node.SetLabel(fmt.Sprintf("%s\n%s\n(%s)", o.Title, format.Currency(o.Value), o.Stage.Label()))
	node.SetShape("ellipse")
	node.SetStyle("filled")
	node.SetFillColor(o.Stage.Color())
	return node, nil
}

// GeneratePipelineGraph draws the stage sequence with every opportunity
// attached to its stage and its client.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context) (string, error) {
	return render(ctx, "Sales Pipeline", func(graph *cgraph.Graph) error {
		counts := g.app.Opportunities.CountByStage()

		stageNodes := make(map[models.Stage]*cgraph.Node)
		var prev *cgraph.Node
		for _, st := range models.Stages() {
			node, err := graph.CreateNodeByName("stage_" + string(st))
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s (%d)", st.Label(), counts[st]))
			node.SetShape("box")
			node.SetStyle("filled,rounded")
			node.SetFillColor(st.Color())
			stageNodes[st] = node

			// lost branches off negotiation rather than following closed
			if st == models.StageLost {
				prev = stageNodes[models.StageNegotiation]
			}
			if prev != nil {
				edge, err := graph.CreateEdgeByName("next_"+string(st), prev, node)
				if err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetStyle("bold")
			}
			prev = node
		}

		clientNodes := make(map[string]*cgraph.Node)
		for _, o := range g.app.Opportunities.All() {
			oppNode, err := opportunityNode(graph, o)
			if err != nil {
				return err
			}
			if stageNode, ok := stageNodes[o.Stage]; ok {
				edge, err := graph.CreateEdgeByName("in_"+o.ID, stageNode, oppNode)
				if err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetStyle("dotted")
				edge.SetDir("none")
			}

			cn, ok := clientNodes[o.ClientID]
			if !ok {
				c, found := g.app.Clients.Get(o.ClientID)
				if !found {
					continue
				}
				if cn, err = clientNode(graph, c); err != nil {
					return err
				}
				clientNodes[o.ClientID] = cn
			}
			if _, err := graph.CreateEdgeByName("deal_"+o.ID, cn, oppNode); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
		return nil
	})
}

// GenerateClientGraph draws one client with its opportunities, their
// interactions, and open tasks.
func (g *GraphGenerator) GenerateClientGraph(ctx context.Context, clientID string) (string, error) {
	c, ok := g.app.Clients.Get(clientID)
	if !ok {
		return "", fmt.Errorf("client not found: %s", clientID)
	}

	return render(ctx, c.FullName(), func(graph *cgraph.Graph) error {
		root, err := clientNode(graph, c)
		if err != nil {
			return err
		}

		oppNodes := make(map[string]*cgraph.Node)
		for _, o := range g.app.Opportunities.ByClient(clientID) {
			node, err := opportunityNode(graph, o)
			if err != nil {
				return err
			}
			oppNodes[o.ID] = node
			edge, err := graph.CreateEdgeByName("deal_"+o.ID, root, node)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel("deal")
		}

		for _, it := range g.app.Interactions.ByClient(clientID) {
			node, err := graph.CreateNodeByName("int_" + it.ID)
			if err != nil {
				return fmt.Errorf("failed to create interaction node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s", it.Type, format.Date(it.Date)))
			node.SetShape("note")

			from := root
			if on, ok := oppNodes[it.OpportunityID]; ok {
				from = on
			}
			edge, err := graph.CreateEdgeByName("int_"+it.ID, from, node)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
		}

		overdue := make(map[string]bool)
		for _, t := range g.app.Tasks.Overdue() {
			overdue[t.ID] = true
		}
		for _, t := range g.app.Tasks.ByClient(clientID) {
			if t.Completed {
				continue
			}
			node, err := graph.CreateNodeByName("task_" + t.ID)
			if err != nil {
				return fmt.Errorf("failed to create task node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\ndue %s", t.Title, format.Date(t.DueDate)))
			node.SetShape("octagon")
			if overdue[t.ID] {
				node.SetStyle("filled")
				node.SetFillColor(models.ColorDanger)
			}

			from := root
			if on, ok := oppNodes[t.OpportunityID]; ok {
				from = on
			}
			if _, err := graph.CreateEdgeByName("task_"+t.ID, from, node); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
		return nil
	})
}
