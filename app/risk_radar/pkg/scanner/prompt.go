package scanner

const systemPrompt = "你是一个舆情风险侦察兵，请严格按照指定的JSON格式输出结果。确保输出是有效的JSON对象，包含完整的'summary'和'items'字段，不包含任何额外的文本、标记或解释。"

const scanPrompt = `请分析以下热榜数据，识别其中可能引发负面舆情的话题。

## 热榜数据
{crawled_data}

## 最近的历史热榜（用于去重与趋势判断）
{historical_data}

## 要求
1. 只挑选存在负面舆情风险的话题，普通娱乐、正面新闻不要列出
2. risk_level 为 1-10 的整数，分数越高风险越大
3. reason 必须给出具体依据，不少于 10 个字，禁止编造热榜中不存在的信息
4. risk_level >= 6 且值得深入调研时 further_investigate 为 true

## 输出格式
{
  "summary": "本批热榜的整体舆情概述",
  "items": [
    {
      "topic": "话题标题",
      "platform": "平台名称",
      "hotness": "热度",
      "risk_level": 7,
      "category": "社会/财经/娱乐/科技/其他",
      "reason": "判断为风险话题的具体依据",
      "further_investigate": true
    }
  ]
}`
