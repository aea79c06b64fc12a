package report

import (
	"fmt"
	"strings"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
)

const (
	localReferenceHeading = "【重点引用资料（本地文章，须重点引用）】"
	knowledgeHeading      = "【知识库检索（可适当引用补充）】"

	referencePriorityRule = "若同时提供了本地引用文章与知识库检索结果，则重点引用本地文章，适当引用知识库作为补充。"
	referenceCitationRule = "若用户提供了重点引用资料，正文中必须引用其中的关键数据、表述或观点，应明确体现资料内容，不得完全脱离资料发挥。"
)

var transformPrompts = map[entity.TransformAction]struct {
	system     string
	userPrefix string
}{
	entity.ActionPolish: {
		system:     "你是一名专业文本润色助手。用户会给你一段中文文本，请在不改变原意的前提下润色，使表述更准确、流畅、得体。只输出润色后的整段文字，不要加「润色结果：」等前缀或任何解释。",
		userPrefix: "请润色以下文本：\n\n",
	},
	entity.ActionSimplify: {
		system:     "你是一名专业文本精简助手。用户会给你一段中文文本，请精简表述、去掉冗余，保留核心信息。只输出精简后的整段文字，不要加任何前缀或解释。",
		userPrefix: "请精简以下文本：\n\n",
	},
	entity.ActionExpand: {
		system:     "你是一名专业文本扩充助手。用户会给你一段中文文本，请在保持原意的基础上适当扩充、补充说明或举例，使内容更充实。只输出扩充后的整段文字，不要加任何前缀或解释。",
		userPrefix: "请扩充以下文本：\n\n",
	},
}

func styleHint(mode entity.StyleMode) string {
	if mode == entity.StyleStandard {
		return "请严格按标准公文格式与用语撰写，层次清晰、用语规范。"
	}
	return "可适当发挥，保持专业、条理清晰。"
}

// BuildOutlinePrompt asks for first-level headings only, one per line.
func BuildOutlinePrompt(req entity.OutlineRequest) []entity.ChatMessage {
	hint := "可自由组织章节，突出专业分析与建议。"
	if entity.ParseStyleMode(req.StyleMode) == entity.StyleStandard {
		hint = "请按标准公文结构：报告摘要、背景与依据、现状与数据、问题分析、对策建议、结论与下一步工作等。"
	}

	system := strings.Join([]string{
		"你是一名专业报告撰写助手。根据用户给出的报告主题和补充信息，生成一份简洁的报告大纲（仅一级标题）。",
		hint,
		"要求：",
		"1. 只输出大纲条目，每行一条，使用中文序号（一、二、三…）或数字序号均可。",
		"2. 不要输出前言、解释或其它说明，仅输出大纲。",
		"3. 若用户提供了重点引用资料，必须依据资料中的结构与要点来组织大纲，使后续正文能直接引用资料内容。",
	}, "\n")

	user := joinBlocks(
		"报告主题："+strings.TrimSpace(req.Topic),
		optionalBlock("核心内容/背景补充：\n", req.CoreContent),
		optionalBlock("【重点引用资料（请依据以下内容组织大纲，正文将据此引用）】\n\n", req.ReferenceText),
	)

	return []entity.ChatMessage{
		{Role: entity.RoleSystem, Content: system},
		{Role: entity.RoleUser, Content: user},
	}
}

// BuildFullPrompt covers the whole outline in one pass.
func BuildFullPrompt(req *entity.GenerationRequest, knowledgeText, discipline string) []entity.ChatMessage {
	hasRef, hasKnowledge := hasText(req.ReferenceText), hasText(knowledgeText)

	system := strings.Join([]string{
		"你是一名专业报告撰写助手。请根据用户提供的大纲和主题，撰写完整报告正文。",
		styleHint(req.StyleMode),
		"要求：",
		"1. 按给定大纲逐节撰写，每节标题使用与大纲一致的格式（如一、二、三或对应标题）。",
		"2. " + fullWordDirective(req.TargetWordCount, discipline),
		"3. 只输出报告正文，不要输出“好的”“以下是”等前缀。",
		"4. 使用中文，内容专业、数据与逻辑可信。",
		"5. " + referenceRule(hasRef, hasKnowledge),
	}, "\n")

	user := joinBlocks(
		"报告主题："+req.Topic,
		"字数要求："+fullWordRequirement(req.TargetWordCount, discipline),
		"报告模板："+req.TemplateName,
		optionalBlock("背景与要点：\n", req.CoreContent),
		referenceBlocks(req.ReferenceText, knowledgeText),
		"大纲：\n"+numberedOutline(req.Outline),
		"请按以上大纲撰写完整报告正文。",
	)

	return []entity.ChatMessage{
		{Role: entity.RoleSystem, Content: system},
		{Role: entity.RoleUser, Content: user},
	}
}

// BuildSectionPrompt asks for the body of req.SectionIndex only.
func BuildSectionPrompt(req *entity.GenerationRequest, knowledgeText, discipline string) []entity.ChatMessage {
	hasRef, hasKnowledge := hasText(req.ReferenceText), hasText(knowledgeText)
	index := 0
	if req.SectionIndex != nil {
		index = *req.SectionIndex
	}
	title := req.SectionTitle()

	system := strings.Join([]string{
		"你是一名专业报告撰写助手。请根据报告主题和大纲，只撰写其中某一节的内容。",
		styleHint(req.StyleMode),
		"要求：",
		fmt.Sprintf("1. 本节标题为：%s。不要在正文中重复该标题，只写标题下方的正文。", title),
		"2. " + sectionWordDirective(req.TargetWordCount, discipline),
		"3. 只输出本节正文，不要输出“好的”“以下是”等前缀，不要写其他节。",
		"4. 使用中文，内容专业、数据与逻辑可信。",
		"5. " + referenceRule(hasRef, hasKnowledge),
	}, "\n")

	user := joinBlocks(
		"报告主题："+req.Topic,
		"字数要求："+sectionWordRequirement(req.TargetWordCount, discipline),
		"报告模板："+req.TemplateName,
		optionalBlock("背景与要点：\n", req.CoreContent),
		referenceBlocks(req.ReferenceText, knowledgeText),
		"全文大纲（供参考）：\n"+numberedOutline(req.Outline),
		fmt.Sprintf("请只撰写第 %d 节「%s」的正文。", index+1, title),
	)

	return []entity.ChatMessage{
		{Role: entity.RoleSystem, Content: system},
		{Role: entity.RoleUser, Content: user},
	}
}

func BuildTransformPrompt(action entity.TransformAction, text string) []entity.ChatMessage {
	p, ok := transformPrompts[action]
	if !ok {
		p = transformPrompts[entity.ActionPolish]
	}
	return []entity.ChatMessage{
		{Role: entity.RoleSystem, Content: p.system},
		{Role: entity.RoleUser, Content: p.userPrefix + text},
	}
}

// referenceBlocks always puts the local reference before the knowledge text.
func referenceBlocks(referenceText, knowledgeText string) string {
	return joinBlocks(
		optionalBlock(localReferenceHeading+"\n\n", referenceText),
		optionalBlock(knowledgeHeading+"\n\n", knowledgeText),
	)
}

func referenceRule(hasRef, hasKnowledge bool) string {
	if hasRef && hasKnowledge {
		return referencePriorityRule
	}
	return referenceCitationRule
}

func fullWordDirective(words int, discipline string) string {
	if discipline == config.DisciplineFloor {
		return fmt.Sprintf("总字数不少于 %d 字，合理分配到各节，内容充实。", words)
	}
	return fmt.Sprintf("总字数不超过 %d 字，合理分配到各节，写满即止。", words)
}

func fullWordRequirement(words int, discipline string) string {
	if discipline == config.DisciplineFloor {
		return fmt.Sprintf("全文不少于 %d 字", words)
	}
	return fmt.Sprintf("全文控制在 %d 字以内（不得超出）", words)
}

func sectionWordDirective(words int, discipline string) string {
	if discipline == config.DisciplineFloor {
		return fmt.Sprintf("本节字数不少于 %d 字，内容充实，不得明显不足。", words)
	}
	return fmt.Sprintf("本节字数必须严格控制在 %d 字以内，不得超出，写满即止。", words)
}

func sectionWordRequirement(words int, discipline string) string {
	if discipline == config.DisciplineFloor {
		return fmt.Sprintf("本节不少于 %d 字", words)
	}
	return fmt.Sprintf("本节严格控制在 %d 字（不得超出）", words)
}

func numberedOutline(outline []string) string {
	lines := make([]string, len(outline))
	for i, item := range outline {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}

func optionalBlock(prefix, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return prefix + text
}

func joinBlocks(blocks ...string) string {
	kept := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
