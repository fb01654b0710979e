package prompts

// System role definitions. %s is the bot's username.
const (
	// AnswerRole is the persona used when drafting a direct answer.
	AnswerRole = "你是一个编译方向的专家，你叫%s，擅长为同学们的问题提供简明的解决方案。"

	// KeywordRole is the persona used when extracting search keywords.
	KeywordRole = "你是编译方向的专家，你叫%s，擅长从同学们不太清晰的问题中提取关键词。"
)

// Instruction templates. %s is the synthesized question.
const (
	AnswerInstructions = "问题：%s\n请给出简明的解决方案。注意不要添加招呼语，如你好，直接给出回答。"

	KeywordInstructions = "请从以下问题中提取3个最相关的英文或中文关键词，用逗号分隔：%s"
)

// Question assembly
const (
	QuestionFormat      = "问题标题: %s, 问题描述: %s, 其他信息: %s"
	EmptyTitle          = "title: empty"
	EmptyDescription    = "description: empty"
	EmptyNote           = "note: empty"
	KeywordSeparator    = ", "
	SearchTermSeparator = " "
)

// Reply sections
const (
	// NoRelatedIssues replaces the related-issue list when the search is empty.
	NoRelatedIssues = "好像没有搜索到相关issue。"

	// RelatedIssueFormat renders one bullet: iid, title, url.
	RelatedIssueFormat = "- [#%d %s](%s)"

	// ReplyTemplate arguments, in order: author username, note URL, direct
	// answer, keywords, related issues.
	ReplyTemplate = `你好😊, @%s。目前我只能看到问题的文字部分，还不能看到图片部分，所以尽可能以文字方式描述问题。我现在只根据问题标题、描述以及你@我的那条评论的最近一次更新([note](%s))进行回答：

针对这个问题，有以下解决方案供你参考:

%s

此外，我也提取了你的问题、描述以及评论中的关键词，如下:

%s

使用gitlab搜索引擎搜索关键词得到的相关issue如下:

%s

如果帮助解决了你的问题，就给评论点个赞👍吧！如果没有，就点个踩👎，我会继续努力的！
`

	// ReplyGreeting is the fixed opening of every reply.
	ReplyGreeting = "你好😊, @"
)
