package mcpserver

// NoteFormatContract describes the note syntax Lumen indexes. LLM clients
// read it before writing notes.
const NoteFormatContract = `# Lumen Note Format

A note is a Markdown document identified by its id. The id is the file name
without the ` + "`" + `.md` + "`" + ` extension and may contain letters, digits, spaces, ` + "`" + `/` + "`" + `
and ` + "`" + `_.~!$&'()*+,;@{}-` + "`" + `. Ids of new notes default to a millisecond timestamp.

## Structure

` + "```" + `markdown
---
tags: [project-x, meeting]          # OPTIONAL – list or comma separated string
template: true                      # OPTIONAL – marks the note as a template
---

# Weekly sync                       # first level-1 heading is the title

Met with [[alice]] about [[project-x/roadmap|the roadmap]]. #planning

- [ ] send notes [[2025-01-21]] #followup
- [x] book room
` + "```" + `

## Syntax

1. **Links**: ` + "`" + `[[id]]` + "`" + `, ` + "`" + `[[id|label]]` + "`" + ` and embeds ` + "`" + `![[id]]` + "`" + `. The target must be a
   valid id. Every link creates a backlink on its target.
2. **Dates**: ` + "`" + `[[YYYY-MM-DD]]` + "`" + ` references a calendar date. Invalid dates such as
   ` + "`" + `[[2024-13-01]]` + "`" + ` are ignored.
3. **Weeks**: ` + "`" + `[[YYYY-Www]]` + "`" + ` links to the weekly note of that ISO week.
4. **Tags**: ` + "`" + `#tag` + "`" + ` at the start of text or after a space or ` + "`" + `(` + "`" + `. Nested tags use
   ` + "`" + `/` + "`" + `: ` + "`" + `#area/sub` + "`" + `. Tags inside code or HTML are not indexed.
5. **Tasks**: GFM checkboxes ` + "`" + `- [ ]` + "`" + ` and ` + "`" + `- [x]` + "`" + `. A task carries its own tags,
   dates and links.
6. Notes whose id is a date (` + "`" + `2025-01-20` + "`" + `) are daily notes; ids like ` + "`" + `2025-W04` + "`" + `
   are weekly notes.

## Query language

` + "`" + `search_notes` + "`" + ` accepts free text plus qualifiers ` + "`" + `key:value` + "`" + `, negated with ` + "`" + `-` + "`" + `:
` + "`" + `tag:a,b` + "`" + ` ` + "`" + `date:>=2025-01-01` + "`" + ` ` + "`" + `link:id` + "`" + ` ` + "`" + `backlink:id` + "`" + ` ` + "`" + `tasks:>0` + "`" + `
` + "`" + `no:tags` + "`" + ` ` + "`" + `has:backlinks` + "`" + ` ` + "`" + `is:daily` + "`" + ` ` + "`" + `id:x` + "`" + ` and any frontmatter key ` + "`" + `status:"in progress"` + "`" + `.
`
