package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Ref is the id-only object shape the API uses to point at other
// resources.
type Ref struct {
	ID string `json:"@id"`
}

// Project is one project record from the API.
type Project struct {
	ID            string `json:"@id"`
	Name          string `json:"name"`
	DefaultBranch Ref    `json:"defaultBranch"`
}

// Branch is one branch record from the API; Head names its latest
// commit.
type Branch struct {
	ID   string `json:"@id"`
	Name string `json:"name"`
	Head Ref    `json:"head"`
}

// ProjectSelector picks a project either by exact id or by name prefix.
// Exactly one field must be set.
type ProjectSelector struct {
	ID   string
	Name string
}

// CommitSelector picks the commit to fetch: an explicit commit id, the
// head of a branch by id or name prefix, or (all fields empty) the head
// of the project's default branch.
type CommitSelector struct {
	CommitID   string
	BranchID   string
	BranchName string
}

// ResolveProject finds the single project matching the selector.
// Name lookup matches on the start of the project name, so a project
// named "My Project" already matches the search "My" when no other
// project does.
func (c *Client) ResolveProject(ctx context.Context, sel ProjectSelector) (Project, error) {
	switch {
	case sel.ID != "" && sel.Name != "":
		return Project{}, fmt.Errorf("select a project by id or by name, not both")

	case sel.ID != "":
		var project Project
		u := c.absoluteURL("projects/" + url.PathEscape(sel.ID))
		if err := c.getJSON(ctx, u, &project); err != nil {
			return Project{}, err
		}
		return project, nil

	case sel.Name != "":
		var projects []Project
		if err := c.getJSON(ctx, c.absoluteURL("projects"), &projects); err != nil {
			return Project{}, err
		}

		var matches []Project
		for _, p := range projects {
			if strings.HasPrefix(p.Name, sel.Name) {
				matches = append(matches, p)
			}
		}
		switch len(matches) {
		case 0:
			return Project{}, fmt.Errorf("no project name starts with %q", sel.Name)
		case 1:
			return matches[0], nil
		default:
			names := make([]string, len(matches))
			for i, p := range matches {
				names[i] = p.Name
			}
			return Project{}, fmt.Errorf("multiple projects match %q (%s); be more specific",
				sel.Name, strings.Join(names, ", "))
		}

	default:
		return Project{}, fmt.Errorf("a project id or name is required")
	}
}

// ResolveCommit finds the commit id the selector points at within the
// given project.
func (c *Client) ResolveCommit(ctx context.Context, project Project, sel CommitSelector) (string, error) {
	branchPath := func(branchID string) string {
		return fmt.Sprintf("projects/%s/branches/%s",
			url.PathEscape(project.ID), url.PathEscape(branchID))
	}

	switch {
	case sel.CommitID != "":
		return sel.CommitID, nil

	case sel.BranchID != "":
		var branch Branch
		if err := c.getJSON(ctx, c.absoluteURL(branchPath(sel.BranchID)), &branch); err != nil {
			return "", err
		}
		return branch.Head.ID, nil

	case sel.BranchName != "":
		var branches []Branch
		u := c.absoluteURL(fmt.Sprintf("projects/%s/branches", url.PathEscape(project.ID)))
		if err := c.getJSON(ctx, u, &branches); err != nil {
			return "", err
		}

		var matches []Branch
		for _, b := range branches {
			if strings.HasPrefix(b.Name, sel.BranchName) {
				matches = append(matches, b)
			}
		}
		switch len(matches) {
		case 0:
			return "", fmt.Errorf("no branch name starts with %q", sel.BranchName)
		case 1:
			return matches[0].Head.ID, nil
		default:
			names := make([]string, len(matches))
			for i, b := range matches {
				names[i] = b.Name
			}
			return "", fmt.Errorf("multiple branches match %q (%s); be more specific",
				sel.BranchName, strings.Join(names, ", "))
		}

	default:
		if project.DefaultBranch.ID == "" {
			return "", fmt.Errorf("project %q has no default branch", project.ID)
		}
		var branch Branch
		if err := c.getJSON(ctx, c.absoluteURL(branchPath(project.DefaultBranch.ID)), &branch); err != nil {
			return "", err
		}
		return branch.Head.ID, nil
	}
}
