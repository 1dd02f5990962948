package oracle

import (
	"fmt"
	"strings"

	"github.com/fentz26/archivist/internal/models"
)

// Separator splits the tier from the department in an answer.
const Separator = "-"

const exampleAnswer = "永久-办公室（党委办公室、党委工作部）"

// BuildMessages assembles the system instruction carrying the policy and the
// output-format constraint, followed by a user message repeating the
// constraint.
func BuildMessages(req Request) []Message {
	labels := make([]string, len(models.Tiers))
	for i, t := range models.Tiers {
		labels[i] = "'" + string(t) + "'"
	}
	kind := req.Kind.Label()

	var b strings.Builder
	fmt.Fprintf(&b, "你是文件分类助手，需严格根据以下规则判断%s的保管期限和所属部门：\n", kind)
	b.WriteString("----- 分类规则 -----\n")
	b.WriteString(req.Policy)
	b.WriteString("\n")
	fmt.Fprintf(&b, "请分析%s名称'%s'的保管期限（仅返回%s之一，30年→长期，10年→短期）和所属部门（按规则中的部门名称），",
		kind, req.Name, strings.Join(labels, "、"))
	fmt.Fprintf(&b, "格式为'保管期限%s部门'（例如'%s'）。\n", Separator, exampleAnswer)
	fmt.Fprintf(&b, "注意：输出必须为纯文本，禁止使用任何格式符号，仅返回'保管期限%s部门'格式的结果，不要输出其他内容。", Separator)

	return []Message{
		{Role: "system", Content: b.String()},
		{Role: "user", Content: fmt.Sprintf("请严格按规则分类，输出'保管期限%s部门'格式的结果", Separator)},
	}
}
